package types

import (
	errorsmod "cosmossdk.io/errors"
)

var (
	ErrNotInitialized       = errorsmod.Register(ModuleName, 1, "authority is not initialized")
	ErrInvalidConfig        = errorsmod.Register(ModuleName, 2, "invalid assertion authority config")
	ErrMalformedRequest     = errorsmod.Register(ModuleName, 3, "malformed assertion request")
	ErrMalformedOffer       = errorsmod.Register(ModuleName, 4, "malformed assertion offer")
	ErrIncompatibleRequest  = errorsmod.Register(ModuleName, 5, "incompatible assertion request")
	ErrAuthenticationFailed = errorsmod.Register(ModuleName, 6, "assertion authentication failed")
	ErrMalformedIdentity    = errorsmod.Register(ModuleName, 7, "malformed identity in authenticated assertion")
)
