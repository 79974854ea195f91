package clinic

import (
	"sync/atomic"
	"time"
)

// Directory is an immutable snapshot of every known clinic. A new Directory
// with a higher version replaces the old one whenever documents change.
type Directory struct {
	version uint64
	clinics []Record
}

// NewDirectory builds a snapshot from records. Records are copied.
func NewDirectory(version uint64, records []Record) *Directory {
	clinics := make([]Record, len(records))
	for i, r := range records {
		clinics[i] = r.Clone()
	}
	return &Directory{version: version, clinics: clinics}
}

// Version identifies the snapshot. It increases on every rebuild.
func (d *Directory) Version() uint64 {
	if d == nil {
		return 0
	}
	return d.version
}

// Empty reports whether no clinics are loaded.
func (d *Directory) Empty() bool {
	return d == nil || len(d.clinics) == 0
}

// Len returns the number of clinics.
func (d *Directory) Len() int {
	if d == nil {
		return 0
	}
	return len(d.clinics)
}

// Clinics returns a copy of the records in directory order.
func (d *Directory) Clinics() []Record {
	if d == nil {
		return nil
	}
	out := make([]Record, len(d.clinics))
	for i, r := range d.clinics {
		out[i] = r.Clone()
	}
	return out
}

// Snapshot is the serialized form of a Directory.
type Snapshot struct {
	Version uint64   `json:"version"`
	Clinics []Record `json:"clinics"`
}

// Snapshot returns the serializable form of d.
func (d *Directory) Snapshot() Snapshot {
	return Snapshot{Version: d.Version(), Clinics: d.Clinics()}
}

// Registry publishes the current Directory. Readers take one snapshot per
// turn with Current and never observe a half-built directory.
type Registry struct {
	current atomic.Pointer[Directory]
}

// NewRegistry returns a registry holding an empty directory. Versions start
// at the boot time in nanoseconds so a process never reissues a version that
// an earlier process handed to a persisted booking session.
func NewRegistry() *Registry {
	return newRegistryAt(uint64(time.Now().UnixNano()))
}

func newRegistryAt(base uint64) *Registry {
	r := &Registry{}
	r.current.Store(NewDirectory(base, nil))
	return r
}

// Current returns the active snapshot.
func (r *Registry) Current() *Directory {
	return r.current.Load()
}

// Replace installs records as a new snapshot with the next version and returns it.
func (r *Registry) Replace(records []Record) *Directory {
	for {
		old := r.current.Load()
		next := NewDirectory(old.Version()+1, records)
		if r.current.CompareAndSwap(old, next) {
			return next
		}
	}
}

// Restore installs a previously saved snapshot. The version never moves
// backwards, so sessions started before the restore still notice a change.
func (r *Registry) Restore(s Snapshot) *Directory {
	for {
		old := r.current.Load()
		version := s.Version
		if version <= old.Version() {
			version = old.Version() + 1
		}
		next := NewDirectory(version, s.Clinics)
		if r.current.CompareAndSwap(old, next) {
			return next
		}
	}
}
