// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command muzzle collects structural reference artifacts from
// instrumentation code and checks them against resolution scopes.
//
// Usage:
//
//	muzzle collect --fixture netty.yaml --unit netty --advice com.acme.NettyAdvice
//	muzzle check --unit netty --scope netty-4.1.yaml --scope netty-4.0.yaml
//	muzzle show --unit netty
//
// Exit codes: 0 when every scope matches, 1 when mismatches were found,
// 2 on any other error.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

func main() {
	err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr)
	code := exitCodeFor(err)
	if err != nil && !errors.Is(err, errMismatches) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(code)
}
