// Package auth implements the credential and token lifecycle for the
// house-unlimited listing platform: password storage and verification,
// access/refresh token minting, single-use secrets for password reset and
// email verification, and the HTTP surface that ties them together.
//
// Components:
//   - HashPassword/ComparePasswordAndHash and the Hasher wrapper own password
//     hashing. The wrapper bounds concurrent bcrypt work so hashing bursts do
//     not starve request dispatch.
//   - TokenMinter issues and verifies the access/refresh JWT pair. Tokens are
//     stateless; there is no server-side registry, and every verification
//     failure collapses into a single generic error.
//   - SecretIssuer generates the random secrets embedded in reset and
//     verification links. Only a one-way hash and an expiry are ever
//     persisted; consuming a secret and applying the state change it
//     authorizes happen in one update.
//   - Users (bun-backed) is the sole owner of persisted secret material.
//   - Gateway authenticates and authorizes protected routes, resolving the
//     identity into the request context rather than mutating the request.
//   - AuthController exposes the register/login/refresh/reset/verify flows
//     as JSON endpoints.
package auth
