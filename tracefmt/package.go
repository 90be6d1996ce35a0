// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package tracefmt describes the wire layout of trace events:
// named, typed fields at byte offsets within an opaque record, and
// bounds-checked accessors over those offsets.
//
// An EventFormat never owns data; it only describes how to read it.
// Callers obtain a FieldRef once at registration time and reuse it
// on every dispatch, so the hot decode path is array indexing
// rather than name lookup.
package tracefmt // import "github.com/aclements/go-traceprobe/tracefmt"
