// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package collector

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/AleutianAI/AleutianMuzzle/services/muzzle/feed"
	"github.com/AleutianAI/AleutianMuzzle/services/muzzle/references"
)

var (
	awsV2ServiceInterceptors = regexp.MustCompile(`^software/amazon/awssdk/services/\w+(/\w+)?/execution\.interceptors$`)
	awsV1ServiceHandlers     = regexp.MustCompile(`^com/amazonaws/services/\w+(/\w+)?/request\.handler2s$`)
)

// IsServiceManifest reports whether path is a resource whose lines name
// implementation classes: Java service loader files and the AWS SDK
// interceptor and handler registries.
func IsServiceManifest(path string) bool {
	return strings.HasPrefix(path, "META-INF/services/") ||
		path == "software/amazon/awssdk/global/handlers/execution.interceptors" ||
		path == "com/amazonaws/global/handlers/request.handler2s" ||
		awsV2ServiceInterceptors.MatchString(path) ||
		awsV1ServiceHandlers.MatchString(path)
}

// ParseManifest returns the class names listed in a service manifest.
// Blank lines and '#' comments are skipped.
func ParseManifest(r io.Reader) ([]string, error) {
	var names []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		names = append(names, references.ClassName(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return names, nil
}

// collectResource visits the classes listed by a service manifest as
// non-advice starting points. Other resources are ignored.
func (r *run) collectResource(ctx context.Context, path string) error {
	if !IsServiceManifest(path) {
		r.logger.Debug("ignoring resource", slog.String("path", path))
		return nil
	}
	opener, ok := r.c.feed.(feed.ResourceOpener)
	if !ok {
		return &BuildError{Unit: r.unit, Err: fmt.Errorf("%w: %s", ErrNoResourceOpener, path)}
	}

	rc, err := opener.OpenResource(path)
	if err != nil {
		return &BuildError{Unit: r.unit, Err: fmt.Errorf("open resource %s: %w", path, err)}
	}
	defer rc.Close()

	names, err := ParseManifest(rc)
	if err != nil {
		return &BuildError{Unit: r.unit, Err: fmt.Errorf("read resource %s: %w", path, err)}
	}
	r.logger.Debug("service manifest", slog.String("path", path), slog.Int("classes", len(names)))
	return r.visitAll(ctx, names, false)
}
