package domain

import "errors"

// Fatal conditions. None of these are expected during correct operation;
// they surface to the operator instead of being retried.
var (
	// ErrUnhandledBroker: a cancel or liquidation did not come back closed.
	ErrUnhandledBroker = errors.New("unhandled broker response")

	// ErrInvalidPrice / ErrInvalidQuantity: the caller submitted a value that
	// was not pre-aligned to the instrument rules.
	ErrInvalidPrice    = errors.New("price is not aligned")
	ErrInvalidQuantity = errors.New("quantity is not aligned")

	ErrInsufficientQuantity = errors.New("quantity below instrument minimum")

	ErrBuyOrderAlreadySet  = errors.New("buy order already set")
	ErrSellOrderAlreadySet = errors.New("unresolved sell order already open")

	ErrUnknownOrderStatus = errors.New("unknown order status")
	ErrTerminalState      = errors.New("terminal state cannot exit")

	ErrUnknownCategory  = errors.New("unknown symbol category")
	ErrUnknownCondition = errors.New("unknown market condition")
	ErrUnknownState     = errors.New("unknown state")
	ErrUnknownSignal    = errors.New("unknown signal")
	ErrHandlerActive    = errors.New("category handler already active")
	ErrHandlerInactive  = errors.New("no active category handler")
	ErrAlreadyStarted   = errors.New("already started")
	ErrNoSymbols        = errors.New("no symbols registered")
)
