// Package prediction defines the contract with the remote price prediction
// service: the canonical response shape, the client error taxonomy, the
// interval derivation policy and the mapping of failures to user messages.
// Transport implementations live in infra/predictor.
package prediction
