// Copyright (C) 2022-2026  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

// Package vcs answers the one question the build planner has for version
// control: which files of a source tree does the VCS consider ignored.  Only
// git is consulted; a tree that is not a git working tree (or a machine
// without git) yields an empty ignore list.
package vcs

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/datawire/dlib/dexec"
	"github.com/datawire/dlib/dlog"
)

// IsWorkingTree reports whether dir is the top level of a git working tree.
// Both the directory form and the gitfile form (worktrees, submodules) of
// ".git" count.
func IsWorkingTree(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ".git"))
	return err == nil
}

// IgnoredFiles returns the set of root-relative POSIX paths under dir that
// git reports as ignored.  A tree that is not a working tree has no ignored
// files; a git invocation failure degrades to the same answer with a
// warning, since ignoring too little only makes the archive larger, never
// wrong.
func IgnoredFiles(ctx context.Context, dir string) map[string]struct{} {
	ignored := make(map[string]struct{})
	if !IsWorkingTree(dir) {
		return ignored
	}

	cmd := dexec.CommandContext(ctx, "git",
		"-C", dir,
		"ls-files",
		"--others",
		"--ignored",
		"--exclude-standard",
		"-z")
	out, err := cmd.Output()
	if err != nil {
		dlog.Warnf(ctx, "vcs.IgnoredFiles: git failed, assuming nothing is ignored: %v", err)
		return ignored
	}
	for _, name := range strings.Split(string(out), "\x00") {
		if name != "" {
			ignored[name] = struct{}{}
		}
	}
	return ignored
}
