// Package idmap implements the bijection between strings (terms or
// document paths) and dense integer ids assigned in insertion order,
// persisted in a format that preserves that order across load cycles.
package idmap

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sync"

	"medindex/internal/ierr"
)

const (
	magic   = "MIDM"
	version = uint16(1)
)

// IdMap is a string<->id bijection. Ids are assigned 0,1,2,... in
// insertion order and never reused; it is safe for concurrent use.
type IdMap struct {
	mu    sync.RWMutex
	byStr map[string]uint32
	byID  []string
}

// New returns an empty IdMap.
func New() *IdMap {
	return &IdMap{byStr: make(map[string]uint32)}
}

// Intern returns s's id, allocating the next id if s hasn't been seen
// before. Idempotent.
func (m *IdMap) Intern(s string) uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.byStr[s]; ok {
		return id
	}
	id := uint32(len(m.byID))
	m.byID = append(m.byID, s)
	m.byStr[s] = id
	return id
}

// GetID returns s's id without allocating one, and false if s is
// unknown.
func (m *IdMap) GetID(s string) (uint32, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byStr[s]
	return id, ok
}

// NameOf returns the string for id, and false if id is out of range.
func (m *IdMap) NameOf(id uint32) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if int(id) >= len(m.byID) {
		return "", false
	}
	return m.byID[id], true
}

// Len returns the number of interned strings.
func (m *IdMap) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byID)
}

// Contains reports whether s has been interned.
func (m *IdMap) Contains(s string) bool {
	_, ok := m.GetID(s)
	return ok
}

// Save serializes the map to path, preserving insertion order so that
// ids reload identically: [magic][version][count][len,bytes]*count.
func (m *IdMap) Save(path string) (err error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	f, err := os.Create(path)
	if err != nil {
		return ierr.NewIoError("idmap save: create", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = ierr.NewIoError("idmap save: close", cerr)
		}
	}()

	w := bufio.NewWriter(f)
	if _, err = w.WriteString(magic); err != nil {
		return ierr.NewIoError("idmap save: write magic", err)
	}
	if err = binary.Write(w, binary.BigEndian, version); err != nil {
		return ierr.NewIoError("idmap save: write version", err)
	}
	if err = binary.Write(w, binary.BigEndian, uint32(len(m.byID))); err != nil {
		return ierr.NewIoError("idmap save: write count", err)
	}
	for _, s := range m.byID {
		b := []byte(s)
		if err = binary.Write(w, binary.BigEndian, uint32(len(b))); err != nil {
			return ierr.NewIoError("idmap save: write entry length", err)
		}
		if _, err = w.Write(b); err != nil {
			return ierr.NewIoError("idmap save: write entry", err)
		}
	}
	if err = w.Flush(); err != nil {
		return ierr.NewIoError("idmap save: flush", err)
	}
	return nil
}

// Load reads a map previously written by Save, reproducing the exact
// string<->id bijection.
func Load(path string) (*IdMap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ierr.NewIoError("idmap load: open", err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	magicBuf := make([]byte, len(magic))
	if _, err := io.ReadFull(r, magicBuf); err != nil {
		return nil, ierr.NewDecodeError("idmap: truncated magic", err)
	}
	if string(magicBuf) != magic {
		return nil, ierr.NewDecodeError(fmt.Sprintf("idmap: bad magic %q", magicBuf), nil)
	}
	var v uint16
	if err := binary.Read(r, binary.BigEndian, &v); err != nil {
		return nil, ierr.NewDecodeError("idmap: truncated version", err)
	}
	if v != version {
		return nil, ierr.NewDecodeError(fmt.Sprintf("idmap: unsupported version %d", v), nil)
	}
	var count uint32
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return nil, ierr.NewDecodeError("idmap: truncated count", err)
	}

	m := &IdMap{byStr: make(map[string]uint32, count), byID: make([]string, 0, count)}
	for i := uint32(0); i < count; i++ {
		var strLen uint32
		if err := binary.Read(r, binary.BigEndian, &strLen); err != nil {
			return nil, ierr.NewDecodeError("idmap: truncated entry length", err)
		}
		buf := make([]byte, strLen)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, ierr.NewDecodeError("idmap: truncated entry", err)
		}
		s := string(buf)
		m.byStr[s] = i
		m.byID = append(m.byID, s)
	}
	return m, nil
}
