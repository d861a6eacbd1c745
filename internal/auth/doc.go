// Package auth holds the pure authentication primitives of the service:
// the role check, the password strength policy, bcrypt hashing and the
// signing and verification of bearer tokens.
//
// Nothing in this package touches the database; the services package
// combines these pieces with the user repository.
package auth
