// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package procfs

import (
	"strings"
	"testing"
)

const sampleMaps = `00400000-00452000 r-xp 00000000 08:02 173521 /bin/cat
7f1234560000-7f1234580000 r-xp 00001000 08:01 123456 /lib/x86_64-linux-gnu/libc.so.6
7ffe00000000-7ffe00021000 rw-p 00000000 00:00 0 [stack]
`

func TestParseMaps(t *testing.T) {
	ms, err := parseMaps(strings.NewReader(sampleMaps))
	if err != nil {
		t.Fatalf("parseMaps: %v", err)
	}
	if len(ms) != 3 {
		t.Fatalf("got %d mappings, want 3", len(ms))
	}

	if ms[0].Start != 0x400000 || ms[0].End != 0x452000 || ms[0].Path != "/bin/cat" {
		t.Errorf("mapping 0: %+v", ms[0])
	}
	if ms[1].Device != 0x0801 || ms[1].Inode != 123456 {
		t.Errorf("mapping 1: got device %#x inode %d", ms[1].Device, ms[1].Inode)
	}
	if ms[2].Path != "[stack]" || ms[2].Inode != 0 {
		t.Errorf("mapping 2 (anonymous): %+v", ms[2])
	}
}

const sampleStatus = `Name:	cat
Umask:	0022
State:	S (sleeping)
Tgid:	1234
Pid:	1234
PPid:	1000
`

func TestParseStatus(t *testing.T) {
	st, err := parseStatus(strings.NewReader(sampleStatus))
	if err != nil {
		t.Fatalf("parseStatus: %v", err)
	}
	if st.Name != "cat" || st.Pid != 1234 || st.Tgid != 1234 {
		t.Errorf("got %+v", st)
	}
}

func TestParseMapsLineRejectsMalformed(t *testing.T) {
	if _, err := parseMapsLine("not-a-valid-line"); err == nil {
		t.Fatal("expected an error for a malformed maps line")
	}
}
