// Package models defines the core domain models for settlebot.
//
// # Models
//
//   - User: a chat user taking part in one settlement cycle
//   - Product: a purchased item recorded by its buyer
//   - Claim: a user's declaration to pay a share of a product
//   - Statement: the computed debts delivered at the end of a cycle
//
// # Design Principles
//
// 1. **Derived teams**: a team has no row of its own; it is the set of users
// referencing one join token and exists while at least one does
// 2. **Avoid circular references**: records refer to each other by ID, never by pointer
// 3. **Immutable purchases**: products and claims are only removed by team teardown
package models
