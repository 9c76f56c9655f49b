package consumables

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"testing"
	"time"

	"LABIS-backend/internal/platform/db"
)

// ---- インメモリのフェイクストア ----

type fakeStore struct {
	rows        map[int64]*Consumable
	usages      map[int64]*UsageLog
	nextUsageID int64
	notes       int
	lockedGets  int
}

func newFakeStore(rows ...*Consumable) *fakeStore {
	f := &fakeStore{rows: map[int64]*Consumable{}, usages: map[int64]*UsageLog{}}
	for _, r := range rows {
		c := *r
		f.rows[c.ConsumableID] = &c
	}
	return f
}

func (f *fakeStore) GetByID(ctx context.Context, dbx db.DBTX, id int64) (*Consumable, error) {
	r, ok := f.rows[id]
	if !ok {
		return nil, ErrNotFound("consumable not found")
	}
	c := *r
	return &c, nil
}

func (f *fakeStore) GetByIDForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*Consumable, error) {
	f.lockedGets++
	return f.GetByID(ctx, nil, id)
}

func (f *fakeStore) ListByDescriptionForUpdate(ctx context.Context, tx *sql.Tx, description string) ([]*Consumable, error) {
	var out []*Consumable
	for _, r := range f.rows {
		if r.Description == description {
			c := *r
			out = append(out, &c)
		}
	}
	return out, nil
}

func (f *fakeStore) Insert(ctx context.Context, c *Consumable) error {
	c.ConsumableID = int64(len(f.rows) + 1)
	cp := *c
	f.rows[cp.ConsumableID] = &cp
	return nil
}

func (f *fakeStore) Update(ctx context.Context, dbx db.DBTX, c *Consumable) error {
	if _, ok := f.rows[c.ConsumableID]; !ok {
		return ErrNotFound("consumable not found")
	}
	cp := *c
	f.rows[cp.ConsumableID] = &cp
	return nil
}

func (f *fakeStore) UpdateStock(ctx context.Context, dbx db.DBTX, c *Consumable) error {
	r, ok := f.rows[c.ConsumableID]
	if !ok {
		return ErrNotFound("consumable not found")
	}
	r.ItemsOut = c.ItemsOut
	r.ItemsOnStock = c.ItemsOnStock
	r.BalanceStock = c.BalanceStock
	r.PreviousMonthStock = c.PreviousMonthStock
	r.UnitsConsumed = c.UnitsConsumed
	return nil
}

func (f *fakeStore) List(ctx context.Context, flt ConsumableFilter, p Page) ([]Consumable, int64, error) {
	all, err := f.ListAll(ctx, flt)
	return all, int64(len(all)), err
}

func (f *fakeStore) ListAll(ctx context.Context, flt ConsumableFilter) ([]Consumable, error) {
	var out []Consumable
	for _, r := range f.rows {
		out = append(out, *r)
	}
	return out, nil
}

func (f *fakeStore) Delete(ctx context.Context, tx *sql.Tx, id int64) error {
	if _, ok := f.rows[id]; !ok {
		return ErrNotFound("consumable not found")
	}
	delete(f.rows, id)
	return nil
}

func (f *fakeStore) InsertUsage(ctx context.Context, dbx db.DBTX, u *UsageLog) error {
	f.nextUsageID++
	u.UsageID = f.nextUsageID
	cp := *u
	f.usages[cp.UsageID] = &cp
	return nil
}

func (f *fakeStore) GetUsageForUpdate(ctx context.Context, tx *sql.Tx, usageID int64) (*UsageLog, error) {
	u, ok := f.usages[usageID]
	if !ok {
		return nil, ErrNotFound("usage log not found")
	}
	cp := *u
	return &cp, nil
}

func (f *fakeStore) CloseUsage(ctx context.Context, dbx db.DBTX, usageID int64, at time.Time, qty int) (int64, error) {
	u, ok := f.usages[usageID]
	if !ok || u.ReturnedAt != nil {
		return 0, nil
	}
	t := at
	u.ReturnedAt = &t
	u.QuantityReturned = &qty
	return 1, nil
}

func (f *fakeStore) ListUsage(ctx context.Context, flt UsageFilter, p Page) ([]usageRow, int64, error) {
	return nil, 0, nil
}

func (f *fakeStore) insertIncidentNote(ctx context.Context, dbx db.DBTX, noteULID string, u *UsageLog, noteType, description, createdBy string, at time.Time) error {
	f.notes++
	return nil
}

// ---- テスト用の Clock / IDGen ----

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type seqIDGen struct{ n int }

func (g *seqIDGen) NewULID(time.Time) string {
	g.n++
	return fmt.Sprintf("01TESTULID%06d", g.n)
}

func newTestService(f *fakeStore, policy ConsumptionPolicy) *Service {
	s := &Service{
		store:  f,
		clock:  fixedClock{t: time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)},
		id:     &seqIDGen{},
		policy: policy,
	}
	s.withTx = func(ctx context.Context, fn func(*sql.Tx) error) error {
		return fn(nil)
	}
	return s
}

func apiCode(t *testing.T, err error) Code {
	t.Helper()
	var api *APIError
	if !errors.As(err, &api) {
		t.Fatalf("error is not *APIError: %v", err)
	}
	return api.Code
}

// ---- 消費 ----

func TestUseCountsRequestedQuantityOnShortfall(t *testing.T) {
	f := newFakeStore(
		&Consumable{ConsumableID: 1, Description: "Ethanol 95%", Expiration: "2025-01-01", ItemsOnStock: 3},
		&Consumable{ConsumableID: 2, Description: "Ethanol 95%", Expiration: "2026-01-01", ItemsOnStock: 2},
	)
	s := newTestService(f, GroupFifoConsumption{})

	resp, err := s.Use(context.Background(), UseConsumableRequest{
		ConsumableID: 1, Quantity: 8,
		UserName: "Rivera", UserType: "student", SectionCourse: "BIO-101", Purpose: "lab",
	})
	if err != nil {
		t.Fatalf("Use: %v", err)
	}

	// 充足できたのは5。それでも units_consumed は要求量8で数え、残量3を返す
	if resp.Remainder != 3 {
		t.Errorf("Remainder = %d, want 3", resp.Remainder)
	}
	if got := f.rows[1].UnitsConsumed; got != 8 {
		t.Errorf("units_consumed = %d, want 8 (requested, not fulfilled)", got)
	}
	if f.rows[1].ItemsOnStock != 0 || f.rows[2].ItemsOnStock != 0 {
		t.Errorf("stocks not drained: %d, %d", f.rows[1].ItemsOnStock, f.rows[2].ItemsOnStock)
	}

	// 欠品でもログは書かれ、トランザクションはコミットされる
	u, ok := f.usages[resp.UsageID]
	if !ok {
		t.Fatal("usage log not written")
	}
	if u.QuantityUsed != 8 {
		t.Errorf("QuantityUsed = %d, want 8", u.QuantityUsed)
	}
}

func TestUseZeroQuantityWritesNothing(t *testing.T) {
	f := newFakeStore(&Consumable{ConsumableID: 1, Description: "Gloves", ItemsOnStock: 5})
	s := newTestService(f, GroupFifoConsumption{})

	resp, err := s.Use(context.Background(), UseConsumableRequest{
		ConsumableID: 1, Quantity: "0",
		UserName: "Rivera", UserType: "student", SectionCourse: "BIO-101", Purpose: "lab",
	})
	if err != nil {
		t.Fatalf("Use: %v", err)
	}
	if resp.UsageID != 0 || len(f.usages) != 0 {
		t.Error("zero-quantity request wrote a usage log")
	}
	if f.rows[1].ItemsOnStock != 5 || f.rows[1].UnitsConsumed != 0 {
		t.Error("zero-quantity request mutated stock")
	}
}

// ---- 返却 ----

func returnFixture(returnable bool) (*fakeStore, *Service) {
	f := newFakeStore(&Consumable{ConsumableID: 1, Description: "Beaker 250ml", ItemsOut: 2, IsReturnable: returnable})
	s := newTestService(f, GroupFifoConsumption{})
	f.nextUsageID = 10
	f.usages[10] = &UsageLog{UsageID: 10, ConsumableID: 1, UserName: "Rivera", QuantityUsed: 5}
	return f, s
}

func TestReturnCreditsItemsOutAndClosesOnce(t *testing.T) {
	f, s := returnFixture(true)

	resp, err := s.Return(context.Background(), 10, "tech1", ReturnConsumableRequest{QuantityReturned: 3})
	if err != nil {
		t.Fatalf("Return: %v", err)
	}
	if resp.QuantityReturned != 3 {
		t.Errorf("QuantityReturned = %d, want 3", resp.QuantityReturned)
	}
	if f.rows[1].ItemsOut != 5 {
		t.Errorf("ItemsOut = %d, want 5 (credited with the return)", f.rows[1].ItemsOut)
	}
	u := f.usages[10]
	if u.ReturnedAt == nil || u.QuantityReturned == nil || *u.QuantityReturned != 3 {
		t.Fatalf("usage not closed: %+v", u)
	}

	// 2回目はコンフリクト。在庫もログも動かない
	_, err = s.Return(context.Background(), 10, "tech1", ReturnConsumableRequest{QuantityReturned: 1})
	if code := apiCode(t, err); code != CodeConflict {
		t.Errorf("second return code = %s, want %s", code, CodeConflict)
	}
	if f.rows[1].ItemsOut != 5 {
		t.Errorf("second return mutated ItemsOut to %d", f.rows[1].ItemsOut)
	}
}

func TestReturnOverQuantityRejected(t *testing.T) {
	f, s := returnFixture(true)

	_, err := s.Return(context.Background(), 10, "tech1", ReturnConsumableRequest{QuantityReturned: 6})
	if code := apiCode(t, err); code != CodeQuantityOverReturn {
		t.Errorf("code = %s, want %s", code, CodeQuantityOverReturn)
	}
	if f.rows[1].ItemsOut != 2 {
		t.Errorf("rejected return mutated ItemsOut to %d", f.rows[1].ItemsOut)
	}
	if f.usages[10].ReturnedAt != nil {
		t.Error("rejected return closed the usage log")
	}
}

func TestReturnNotReturnableRejected(t *testing.T) {
	_, s := returnFixture(false)

	_, err := s.Return(context.Background(), 10, "tech1", ReturnConsumableRequest{QuantityReturned: 1})
	if code := apiCode(t, err); code != CodeConflict {
		t.Errorf("code = %s, want %s", code, CodeConflict)
	}
}

func TestReturnWritesIncidentNote(t *testing.T) {
	f, s := returnFixture(true)

	noteType := "damaged"
	desc := "cracked rim"
	_, err := s.Return(context.Background(), 10, "tech1", ReturnConsumableRequest{
		QuantityReturned: 2, NoteType: &noteType, NoteDescription: &desc,
	})
	if err != nil {
		t.Fatalf("Return: %v", err)
	}
	if f.notes != 1 {
		t.Errorf("incident notes written = %d, want 1", f.notes)
	}
}

// ---- 更新 ----

func TestUpdateUsesRowLock(t *testing.T) {
	f := newFakeStore(&Consumable{ConsumableID: 1, Description: "Gloves", Unit: "box", ItemsOnStock: 4})
	s := newTestService(f, GroupFifoConsumption{})

	unit := "pair"
	_, err := s.Update(context.Background(), 1, UpdateConsumableRequest{Unit: &unit})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if f.lockedGets != 1 {
		t.Errorf("locked reads = %d, want 1 (edit must go through the row lock)", f.lockedGets)
	}
	if f.rows[1].Unit != "pair" {
		t.Errorf("Unit = %q, want %q", f.rows[1].Unit, "pair")
	}
}

// ---- CSVエクスポート ----

func TestExportCSVIncludesAllRows(t *testing.T) {
	f := newFakeStore()
	for i := 1; i <= MaxPageLimit+50; i++ {
		id := int64(i)
		f.rows[id] = &Consumable{ConsumableID: id, Description: fmt.Sprintf("Item %d", i), ItemsOnStock: 1}
	}
	s := newTestService(f, GroupFifoConsumption{})

	data, err := s.ExportCSV(context.Background(), ConsumableFilter{})
	if err != nil {
		t.Fatalf("ExportCSV: %v", err)
	}

	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	// ヘッダ + 全行。一覧のページ上限はエクスポートには効かない
	if want := MaxPageLimit + 50 + 1; len(records) != want {
		t.Errorf("csv rows = %d, want %d", len(records), want)
	}
}
