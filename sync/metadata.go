package sync

import "time"

// Direction is the closed set of sync directions recorded in lp_sync_metadata.
type Direction string

const (
	DirectionPush Direction = "push"
	DirectionPull Direction = "pull"
)

// Status is the derived health of one table's sync metadata row.
type Status string

const (
	StatusInSync   Status = "in_sync"
	StatusAhead    Status = "ahead"    // local changed, remote unchanged
	StatusBehind   Status = "behind"   // remote changed, local unchanged
	StatusConflict Status = "conflict" // both changed since the base
)

// MetadataRow is one lp_sync_metadata record: a table's checksum history
// across local and remote, enough to derive conflicts without
// re-introspecting or re-fetching.
type MetadataRow struct {
	AppID           string
	TableName       string
	LocalChecksum   string
	RemoteChecksum  string
	BaseChecksum    string
	LocalVersion    int
	RemoteVersion   int
	LastSyncAt      time.Time
	LastSyncDir     Direction
	LastSyncBy      string
	ConflictDetails string // JSON payload, empty when no conflict
}

// DerivedStatus derives the row's sync status from its checksum triple.
func (r MetadataRow) DerivedStatus() Status {
	localChanged := r.LocalChecksum != r.BaseChecksum
	remoteChanged := r.RemoteChecksum != r.BaseChecksum
	switch {
	case localChanged && remoteChanged:
		return StatusConflict
	case localChanged:
		return StatusAhead
	case remoteChanged:
		return StatusBehind
	default:
		return StatusInSync
	}
}

// MetadataStore is the lp_sync_metadata persistence port.
type MetadataStore interface {
	Get(appID, tableName string) (*MetadataRow, error)
	List(appID string) ([]MetadataRow, error)
	Upsert(row MetadataRow) error
}

// detectConflicts returns the rows whose local and remote checksums have
// both diverged from their last common base.
func detectConflicts(rows []MetadataRow) []MetadataRow {
	var conflicts []MetadataRow
	for _, row := range rows {
		if row.DerivedStatus() == StatusConflict {
			conflicts = append(conflicts, row)
		}
	}
	return conflicts
}
