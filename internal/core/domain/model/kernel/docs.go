// Package kernel provides the shared primitives of the pre-order domain.
//
// The package includes:
//   - UUID: identifier value object for persisted aggregates
//   - Clock: injectable source of the current instant plus the non-production
//     pickup offset (SystemClock for production, FixedClock for tests)
//   - LineItem: product line (quantity, unit price) shared by baskets and orders
//   - Quantity helpers: conversion of client input into decimal quantities,
//     rejecting values that are not finite numbers
//
// These primitives are immutable or internally synchronised and safe for
// concurrent use.
package kernel
