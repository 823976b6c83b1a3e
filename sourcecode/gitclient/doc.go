/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package gitclient manages the single working copy a fix run edits:
// clone, branch, per-issue commits and the final push.
package gitclient
