// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package procmap

// Machine is the live pid -> Process map for one traced host,
// generalizing the teacher repo's Session. It is distinct from the
// export format's MachineInfo record (aggregator.MachineInfo): this
// Machine is mutable runtime state the dispatch handlers update on
// every Comm/Fork/Exit/Mmap record, while MachineInfo is a single
// immutable fact emitted once per export stream.
type Machine struct {
	kernel    *Process
	processes map[int]*Process
}

// KernelPID is the synthetic PID used for kernel-space addresses,
// matching perf's own convention of reporting the kernel as PID -1.
const KernelPID = -1

// NewMachine creates a machine with only the synthetic kernel process
// present.
func NewMachine() *Machine {
	kernel := NewProcess(KernelPID, "[kernel]")
	return &Machine{
		kernel:    kernel,
		processes: map[int]*Process{KernelPID: kernel},
	}
}

// Ensure returns the Process for pid, creating an empty one if this
// is the first time pid has been seen (spec §4.3: "samples may
// precede the Comm/Fork record that would otherwise have created the
// process").
func (m *Machine) Ensure(pid int) *Process {
	p, ok := m.processes[pid]
	if !ok {
		p = NewProcess(pid, "")
		m.processes[pid] = p
	}
	return p
}

// Lookup returns the Process for pid, or nil if none is known.
func (m *Machine) Lookup(pid int) *Process {
	return m.processes[pid]
}

// Fork creates childPID's process as a copy of parentPID's, per a
// PERF_RECORD_FORK thread-group-leader event.
func (m *Machine) Fork(parentPID, childPID int) {
	parent := m.Ensure(parentPID)
	m.processes[childPID] = parent.Fork(childPID)
}

// Exit removes pid's process state, per a PERF_RECORD_EXIT
// thread-group-leader event.
func (m *Machine) Exit(pid int) {
	delete(m.processes, pid)
}

// Module resolves ip in the context of pid's address space, falling
// back to the kernel's address space if pid has no mapping there
// (matching the teacher's PIDInfo.LookupMmap fallback, for samples
// taken while running in kernel mode).
func (m *Machine) Module(pid int, ip uint64) (*Module, bool) {
	if p, ok := m.processes[pid]; ok {
		if mod, ok := p.Find(ip); ok {
			return mod, true
		}
	}
	return m.kernel.Find(ip)
}

// ModuleAccessor resolves a ModuleKey to an open, seekable handle on
// its backing file, for callers (dwarfcfi, prologscan) that need to
// read the file's CFI or code bytes. Implementations should degrade
// gracefully: spec §4.3 requires that a module whose file cannot be
// opened fall back to UnwindProlog rather than fail the whole sample.
type ModuleAccessor interface {
	// Open returns a ReaderAt positioned to read the backing
	// file's contents, or false if the file is unavailable (e.g.
	// deleted, in a container's overlay that no longer exists).
	Open(key ModuleKey, path string) (ReaderAt, bool)
}

// ReaderAt is the minimal interface ModuleAccessor implementations
// need to provide; it is satisfied by *os.File.
type ReaderAt interface {
	ReadAt(p []byte, off int64) (n int, err error)
}
