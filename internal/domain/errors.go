package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors carry no infrastructure dependency. Engine operations
// report refusals through Outcome; these errors belong to the layers around it.

var (
	// Catalog errors
	ErrInvalidCatalog = errors.New("invalid reward catalog")
	ErrUnknownBadge   = errors.New("unknown badge")
	ErrUnknownPremium = errors.New("unknown premium nudge")

	// Wallet errors
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrInsufficientCoins = errors.New("insufficient coins")

	// Engine lifecycle
	ErrEngineDisposed = errors.New("engine has been disposed")

	// Reward box
	ErrInvalidTrigger = errors.New("invalid reward trigger")
	ErrEmptyRarity    = errors.New("no rewards defined for rarity")

	// Daily rewards
	ErrAlreadyClaimed = errors.New("daily reward already claimed today")

	// Challenges
	ErrChallengeNotFound = errors.New("challenge not found")
)
