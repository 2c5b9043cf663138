// Ferm - Farming Simulation Backend
// Copyright 2026 The Ferm Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// Licensed under the GNU Affero General Public License v3.0 or later.

// Package authz authenticates API callers and authorizes their requests.
//
// Callers present an HS256 bearer token carrying user_id, email and role.
// Tokens are issued by the account service; this package only verifies
// them. Authorization is a Casbin RBAC policy over request paths and
// methods with two roles: player, and admin which inherits player.
//
// The model and default policy are embedded; a policy file on disk may
// replace the default.
package authz
