package broker_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/tabot/internal/adapters/broker"
	"github.com/alejandrodnm/tabot/internal/adapters/marketdata"
	"github.com/alejandrodnm/tabot/internal/domain"
)

var t0 = time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)

type fixedClock struct{ now time.Time }

func (c *fixedClock) Now() time.Time { return c.now }

func bar(min int, low, high, close float64) domain.Bar {
	return domain.Bar{Time: t0.Add(time.Duration(min) * time.Minute), Open: close, High: high, Low: low, Close: close}
}

func setup() (*broker.Paper, *fixedClock) {
	clk := &fixedClock{now: t0}
	feed := marketdata.NewFeed()
	feed.Add("ABC", []domain.Bar{
		bar(0, 9.9, 10.2, 10.0),
		bar(5, 9.7, 10.1, 9.8),
		bar(10, 9.5, 10.9, 10.8),
		bar(15, 10.5, 11.6, 11.5),
	})
	feed.BindClock(clk)
	return broker.NewPaper(feed, clk), clk
}

func TestPaper_MarketOrderFillsAtLatestClose(t *testing.T) {
	p, clk := setup()
	clk.now = t0.Add(5 * time.Minute)

	o, err := p.BuyOrderMarket(context.Background(), "ABC", 10)
	require.NoError(t, err)
	assert.True(t, o.Closed)
	assert.Equal(t, domain.OrderFilled, o.Status)
	assert.Equal(t, 9.8, o.FilledUnitPrice)
	assert.InDelta(t, 98.0, o.FilledTotalValue, 1e-9)
	assert.Equal(t, domain.SideBuy, o.Side)
}

func TestPaper_LimitBuyLifecycle(t *testing.T) {
	p, clk := setup()
	ctx := context.Background()

	o, err := p.BuyOrderLimit(ctx, "ABC", 10, 9.6)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderPending, o.Status)
	assert.False(t, o.Closed)

	clk.now = t0.Add(5 * time.Minute)
	o, err = p.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderOpen, o.Status, "low 9.7 does not reach 9.6")

	clk.now = t0.Add(10 * time.Minute)
	o, err = p.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderFilled, o.Status)
	assert.Equal(t, 9.6, o.FilledUnitPrice)
	assert.Equal(t, 10.0, o.FilledQuantity)
}

func TestPaper_LimitSellFillsOnHigh(t *testing.T) {
	p, clk := setup()
	ctx := context.Background()
	clk.now = t0.Add(5 * time.Minute)

	o, err := p.SellOrderLimit(ctx, "ABC", 5, 11.5)
	require.NoError(t, err)

	clk.now = t0.Add(15 * time.Minute)
	o, err = p.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderFilled, o.Status)
	assert.Equal(t, 11.5, o.FilledUnitPrice)
}

func TestPaper_Cancel(t *testing.T) {
	p, clk := setup()
	ctx := context.Background()

	o, err := p.SellOrderLimit(ctx, "ABC", 5, 50)
	require.NoError(t, err)
	c, err := p.CancelOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderCancelled, c.Status)
	assert.True(t, c.Closed)

	t.Run("filled orders stay filled", func(t *testing.T) {
		m, err := p.SellOrderMarket(ctx, "ABC", 5)
		require.NoError(t, err)
		c, err := p.CancelOrder(ctx, m.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.OrderFilled, c.Status)
	})

	t.Run("fill before cancel wins", func(t *testing.T) {
		o, err := p.BuyOrderLimit(ctx, "ABC", 5, 9.6)
		require.NoError(t, err)
		clk.now = t0.Add(10 * time.Minute)
		c, err := p.CancelOrder(ctx, o.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.OrderFilled, c.Status)
	})

	_, err = p.CancelOrder(ctx, "nope")
	assert.ErrorIs(t, err, broker.ErrUnknownOrder)
}

func TestPaper_RejectsBadInput(t *testing.T) {
	p, _ := setup()
	_, err := p.BuyOrderLimit(context.Background(), "ABC", 0, 10)
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
	_, err = p.SellOrderLimit(context.Background(), "ABC", 1, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidPrice)
}

func TestLimited_PassesThrough(t *testing.T) {
	p, _ := setup()
	l := broker.NewLimited(p, 1000, 10)
	ctx := context.Background()

	o, err := l.BuyOrderMarket(ctx, "ABC", 1)
	require.NoError(t, err)
	got, err := l.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.ID, got.ID)
	assert.Len(t, p.Orders(), 1)
}

func TestLimited_HonoursContext(t *testing.T) {
	p, _ := setup()
	l := broker.NewLimited(p, 0.001, 1)
	ctx, cancel := context.WithCancel(context.Background())

	_, err := l.BuyOrderMarket(ctx, "ABC", 1)
	require.NoError(t, err, "first call uses the burst token")

	cancel()
	_, err = l.BuyOrderMarket(ctx, "ABC", 1)
	assert.ErrorIs(t, err, context.Canceled)
}
