package idgen

import "github.com/google/uuid"

// NewFunc produces task and signal identifiers.  Tests replace it when they
// need predictable ids.
var NewFunc = func() string { return uuid.New().String() }

// New returns a fresh identifier via NewFunc.
func New() string { return NewFunc() }
