package seeddb

import (
	"errors"
	"fmt"
	"math"

	dbm "github.com/cometbft/cometbft-db"
	"github.com/google/orderedcode"

	cmtdb "github.com/gospiritual/yacy-search-server/libs/db"
	cmtsync "github.com/gospiritual/yacy-search-server/libs/sync"
	"github.com/gospiritual/yacy-search-server/types"
)

// Key layout of a table:
//
//	0x01 | hash                                  -> logfmt encoded attributes
//	0x02 | orderedcode(field, float64(v), hash)  -> the same attributes
const (
	prefixRecord byte = 0x01
	prefixIndex  byte = 0x02
)

var (
	// SortFields are the attributes a table keeps a sorted index for.
	SortFields = []string{
		types.AttrLCount,
		types.AttrICount,
		types.AttrUptime,
		types.AttrVersion,
		types.AttrLastSeen,
	}

	// SumFields are the attributes a table keeps a running sum of.
	SumFields = []string{
		types.AttrLCount,
		types.AttrICount,
		types.AttrISpeed,
	}

	// ErrTableClosed is returned by operations on a table that has been
	// closed, usually because it was reset in the meantime.
	ErrTableClosed = errors.New("table closed")

	// ErrUnknownSortField is returned when iterating by a field without index.
	ErrUnknownSortField = errors.New("unknown sort field")
)

// Table is a persistent mapping from peer hash to attributes, with a sorted
// index per sort field and running sums. It is safe for concurrent use.
type Table struct {
	name string
	db   dbm.DB

	// guards closed and db against Close; held shortly by every operation
	closeMtx cmtsync.RWMutex
	closed   bool

	// serializes writes and guards the aggregates below
	mtx  cmtsync.Mutex
	size int
	sums map[string]int64
}

// openTable wraps db and recomputes size and sums with a full scan. Any
// error means the store is unusable.
func openTable(name string, db dbm.DB) (*Table, error) {
	t := &Table{
		name: name,
		db:   db,
		sums: make(map[string]int64, len(SumFields)),
	}
	itr, err := cmtdb.IteratePrefix(db, []byte{prefixRecord})
	if err != nil {
		return nil, err
	}
	defer itr.Close()
	for ; itr.Valid(); itr.Next() {
		attrs := &types.Attributes{}
		if err := attrs.UnmarshalLogfmt(itr.Value()); err != nil {
			return nil, fmt.Errorf("record %q: %w", itr.Key()[1:], err)
		}
		t.account(attrs, 1)
	}
	if err := itr.Error(); err != nil {
		return nil, err
	}
	return t, nil
}

// Name returns the table name.
func (t *Table) Name() string { return t.name }

func recordKey(hash string) []byte {
	return cmtdb.Join([]byte{prefixRecord}, []byte(hash))
}

func indexPrefix(field string) ([]byte, error) {
	return orderedcode.Append([]byte{prefixIndex}, field)
}

func indexKey(field string, attrs *types.Attributes, hash string) ([]byte, error) {
	return orderedcode.Append([]byte{prefixIndex}, field, sortValue(attrs, field), hash)
}

func sortValue(attrs *types.Attributes, field string) float64 {
	v := attrs.Float64(field)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func isSortField(field string) bool {
	for _, f := range SortFields {
		if f == field {
			return true
		}
	}
	return false
}

// account adds (sign 1) or subtracts (sign -1) a record from the aggregates.
func (t *Table) account(attrs *types.Attributes, sign int) {
	t.size += sign
	for _, f := range SumFields {
		t.sums[f] += int64(sign) * attrs.Int64(f)
	}
}

// Get returns the attributes stored for hash, nil if there are none.
func (t *Table) Get(hash string) (*types.Attributes, error) {
	t.closeMtx.RLock()
	defer t.closeMtx.RUnlock()
	if t.closed {
		return nil, ErrTableClosed
	}
	return t.get(hash)
}

func (t *Table) get(hash string) (*types.Attributes, error) {
	bz, err := t.db.Get(recordKey(hash))
	if err != nil {
		return nil, err
	}
	if bz == nil {
		return nil, nil
	}
	attrs := &types.Attributes{}
	if err := attrs.UnmarshalLogfmt(bz); err != nil {
		return nil, fmt.Errorf("record %q: %w", hash, err)
	}
	return attrs, nil
}

// Has reports whether a record for hash exists.
func (t *Table) Has(hash string) (bool, error) {
	t.closeMtx.RLock()
	defer t.closeMtx.RUnlock()
	if t.closed {
		return false, ErrTableClosed
	}
	return t.db.Has(recordKey(hash))
}

// Set inserts or replaces the record for hash together with its index
// entries in one batch.
func (t *Table) Set(hash string, attrs *types.Attributes) error {
	bz, err := attrs.MarshalLogfmt()
	if err != nil {
		return err
	}
	if bz == nil {
		bz = []byte{}
	}

	t.closeMtx.RLock()
	defer t.closeMtx.RUnlock()
	if t.closed {
		return ErrTableClosed
	}
	t.mtx.Lock()
	defer t.mtx.Unlock()

	old, err := t.get(hash)
	if err != nil {
		return err
	}

	batch := t.db.NewBatch()
	defer batch.Close()
	if old != nil {
		if err := deleteIndex(batch, old, hash); err != nil {
			return err
		}
	}
	if err := batch.Set(recordKey(hash), bz); err != nil {
		return err
	}
	for _, f := range SortFields {
		key, err := indexKey(f, attrs, hash)
		if err != nil {
			return err
		}
		if err := batch.Set(key, bz); err != nil {
			return err
		}
	}
	if err := batch.Write(); err != nil {
		return err
	}

	if old != nil {
		t.account(old, -1)
	}
	t.account(attrs, 1)
	return nil
}

// Remove deletes the record for hash. Removing a missing record is a no-op.
func (t *Table) Remove(hash string) error {
	t.closeMtx.RLock()
	defer t.closeMtx.RUnlock()
	if t.closed {
		return ErrTableClosed
	}
	t.mtx.Lock()
	defer t.mtx.Unlock()

	old, err := t.get(hash)
	if err != nil || old == nil {
		return err
	}

	batch := t.db.NewBatch()
	defer batch.Close()
	if err := batch.Delete(recordKey(hash)); err != nil {
		return err
	}
	if err := deleteIndex(batch, old, hash); err != nil {
		return err
	}
	if err := batch.Write(); err != nil {
		return err
	}
	t.account(old, -1)
	return nil
}

func deleteIndex(batch dbm.Batch, attrs *types.Attributes, hash string) error {
	for _, f := range SortFields {
		key, err := indexKey(f, attrs, hash)
		if err != nil {
			return err
		}
		if err := batch.Delete(key); err != nil {
			return err
		}
	}
	return nil
}

// Size returns the number of records.
func (t *Table) Size() int {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	return t.size
}

// Sum returns the running sum of a SumFields attribute.
func (t *Table) Sum(field string) int64 {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	return t.sums[field]
}

// Iterator returns the records in hash order. A non empty startHash starts
// the scan at the first hash not less (ascending) or not greater
// (descending) than startHash. With rotate the scan then wraps around, so
// every record is visited exactly once; without it the scan ends at the end
// of the table.
func (t *Table) Iterator(ascending, rotate bool, startHash string) *RecordIterator {
	lo, hi := cmtdb.PrefixRange([]byte{prefixRecord})
	if startHash == "" {
		return t.newIterator(false, keyRange{start: lo, end: hi, reverse: !ascending})
	}

	pivot := recordKey(startHash)
	if ascending {
		first := keyRange{start: pivot, end: hi}
		if !rotate {
			return t.newIterator(false, first)
		}
		return t.newIterator(false, first, keyRange{start: lo, end: pivot})
	}
	// descending includes the pivot itself in the first range
	after := cmtdb.Join(pivot, []byte{0x00})
	first := keyRange{start: lo, end: after, reverse: true}
	if !rotate {
		return t.newIterator(false, first)
	}
	return t.newIterator(false, first, keyRange{start: after, end: hi, reverse: true})
}

// SortedIterator returns the records ordered by field. Records with equal
// values are ordered by hash.
func (t *Table) SortedIterator(ascending bool, field string) (*RecordIterator, error) {
	if !isSortField(field) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSortField, field)
	}
	prefix, err := indexPrefix(field)
	if err != nil {
		return nil, err
	}
	lo, hi := cmtdb.PrefixRange(prefix)
	return t.newIterator(true, keyRange{start: lo, end: hi, reverse: !ascending}), nil
}

// Close closes the underlying store. Pending iterators stop at their next
// step with ErrTableClosed.
func (t *Table) Close() error {
	t.closeMtx.Lock()
	defer t.closeMtx.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	return t.db.Close()
}

//-----------------------------------------------------------------------------

// iteratorBatchSize is the number of records a RecordIterator reads per
// store iterator. No store iterator stays open between two calls to Next.
const iteratorBatchSize = 64

type keyRange struct {
	start, end []byte
	reverse    bool
}

type record struct {
	hash  string
	attrs *types.Attributes
}

// RecordIterator walks a table through one or more key ranges in order,
// reading them in batches. It is not safe for concurrent use.
type RecordIterator struct {
	t      *Table
	ranges []keyRange
	index  bool // keys are sort index entries
	buf    []record
	err    error
}

func (t *Table) newIterator(index bool, ranges ...keyRange) *RecordIterator {
	return &RecordIterator{t: t, ranges: ranges, index: index}
}

// Next returns the next record. ok is false once the iterator is exhausted
// or failed; Error tells the two apart.
func (it *RecordIterator) Next() (hash string, attrs *types.Attributes, ok bool) {
	if len(it.buf) == 0 {
		it.fill()
	}
	if len(it.buf) == 0 {
		return "", nil, false
	}
	rec := it.buf[0]
	it.buf = it.buf[1:]
	return rec.hash, rec.attrs, true
}

func (it *RecordIterator) fill() {
	it.t.closeMtx.RLock()
	defer it.t.closeMtx.RUnlock()

	for len(it.buf) == 0 && len(it.ranges) > 0 && it.err == nil {
		if it.t.closed {
			it.err = ErrTableClosed
			return
		}
		it.err = it.fillRange(&it.ranges[0])
	}
}

// fillRange reads up to iteratorBatchSize records of r and narrows r to the
// part not read yet. A fully read range is dropped.
func (it *RecordIterator) fillRange(r *keyRange) error {
	var (
		itr dbm.Iterator
		err error
	)
	if r.reverse {
		itr, err = it.t.db.ReverseIterator(r.start, r.end)
	} else {
		itr, err = it.t.db.Iterator(r.start, r.end)
	}
	if err != nil {
		return err
	}
	defer itr.Close()

	var last []byte
	for n := 0; itr.Valid() && n < iteratorBatchSize; itr.Next() {
		rec, err := it.decode(itr.Key(), itr.Value())
		if err != nil {
			return err
		}
		it.buf = append(it.buf, rec)
		last = cmtdb.Join(itr.Key())
		n++
	}
	if err := itr.Error(); err != nil {
		return err
	}

	switch {
	case !itr.Valid():
		it.ranges = it.ranges[1:]
	case r.reverse:
		r.end = last
	default:
		r.start = cmtdb.Join(last, []byte{0x00})
	}
	return nil
}

func (it *RecordIterator) decode(key, value []byte) (record, error) {
	var hash string
	if it.index {
		var (
			field string
			v     float64
		)
		if _, err := orderedcode.Parse(string(key[1:]), &field, &v, &hash); err != nil {
			return record{}, fmt.Errorf("index key %X: %w", key, err)
		}
	} else {
		hash = string(key[1:])
	}
	attrs := &types.Attributes{}
	if err := attrs.UnmarshalLogfmt(value); err != nil {
		return record{}, fmt.Errorf("record %q: %w", hash, err)
	}
	return record{hash: hash, attrs: attrs}, nil
}

// Error returns the error that stopped the iteration, if any.
func (it *RecordIterator) Error() error {
	return it.err
}

// Close drops whatever has not been read yet.
func (it *RecordIterator) Close() {
	it.ranges = nil
	it.buf = nil
}
