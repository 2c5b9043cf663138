// Ferm - Farming Simulation Backend
// Copyright 2026 The Ferm Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// Licensed under the GNU Affero General Public License v3.0 or later.

/*
Package middleware provides HTTP middleware shared by every route.

  - RequestID: reuses or generates X-Request-ID and puts it, with a fresh
    correlation ID, into the logging context.
  - PrometheusMetrics: counts requests and in-flight requests, labelled by
    the chi route pattern so path parameters do not explode cardinality.

Both are plain func(http.Handler) http.Handler and can be passed to
chi's Use.
*/
package middleware
