// Ferm - Farming Simulation Backend
// Copyright 2026 The Ferm Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// Licensed under the GNU Affero General Public License v3.0 or later.

/*
Package supervisor runs the long-lived parts of ferm under suture v4.

The tree has two layers so a crash-looping consumer never takes the HTTP
server down with it:

	RootSupervisor ("ferm")
	├── PipelineSupervisor ("pipeline-layer")
	│   ├── planting-consumer        (broker enabled)
	│   ├── maturity-consumer        (broker enabled, email enabled)
	│   └── maturity-scanner         (email enabled)
	└── APISupervisor ("api-layer")
	    └── http-server

Services are restarted with suture's backoff. Supervisor events go to the
zerolog pipeline through sutureslog and logging.NewSlogLogger.
*/
package supervisor
