package model

import (
	"context"

	"github.com/brettbedarf/mtpview"
)

// cacheState tracks the lifecycle of a row's metadata snapshot
type cacheState uint8

const (
	cacheAbsent  cacheState = iota // never fetched, invalidated or last fetch failed
	cachePending                   // fetch in flight
	cachePresent                   // info holds a valid snapshot
)

func (s cacheState) String() string {
	switch s {
	case cacheAbsent:
		return "absent"
	case cachePending:
		return "pending"
	case cachePresent:
		return "present"
	default:
		return "unknown"
	}
}

// row is one directory entry of the listing
type row struct {
	id    mtpview.ObjectID
	state cacheState
	info  *mtpview.ObjectInfo
}

func newRow(id mtpview.ObjectID) *row {
	return &row{id: id}
}

// getInfo returns the cached snapshot, fetching it first when absent.
// A failed fetch leaves the row absent so the next access retries.
// A pending row (re-entrant access while fetching) reports no data
func (r *row) getInfo(ctx context.Context, session mtpview.Session) (*mtpview.ObjectInfo, error) {
	switch r.state {
	case cachePresent:
		return r.info, nil
	case cachePending:
		return nil, nil
	}
	if session == nil {
		return nil, mtpview.ErrNoSession
	}

	r.state = cachePending
	info, err := session.GetObjectInfo(ctx, r.id)
	if err != nil {
		r.state = cacheAbsent
		return nil, err
	}
	r.info = info
	r.state = cachePresent
	return info, nil
}

// reset invalidates the cached snapshot
func (r *row) reset() {
	r.state = cacheAbsent
	r.info = nil
}
