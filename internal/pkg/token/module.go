package token

import "go.uber.org/fx"

// Module provides the capability token generator via fx.
var Module = fx.Provide(func() Generator { return NewRandomGenerator() })
