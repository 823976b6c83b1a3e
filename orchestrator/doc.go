/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

/*
Package orchestrator runs the fix pipeline:

	validate → run identity → clone and branch → connector → issues →
	per issue: rule → prompt → model → replacements → commit →
	push → optional pull request

Issues are handled one at a time because each fix commits to the shared
working copy. A failing issue never ends the run. Setup, issue retrieval
and the push end it with a *RunError whose Code is the process exit code.
*/
package orchestrator
