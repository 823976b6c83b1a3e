/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package sourcecode holds the types shared by source-control clients and
// the components that read repository content.
package sourcecode

import (
	"context"
	"errors"
)

// ErrFileNotFound is returned when a repository path does not exist.
var ErrFileNotFound = errors.New("file not found")

// SourceFile is a tracked file and its content. Path is relative to the
// repository root and uses forward slashes.
type SourceFile struct {
	Path    string
	Content string
}

// Lister lists source files. extension selects files by suffix (".cs");
// folderFilter, when non-empty, keeps only files below a directory of that name.
type Lister interface {
	GetAllFiles(ctx context.Context, extension, folderFilter string) ([]SourceFile, error)
}
