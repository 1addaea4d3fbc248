package character

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"savesmith/internal/backend"
)

// fakeBackend serves canned subsystem documents. A subsystem with a gate
// blocks each fetch until the gate is closed or the fetch is cancelled.
type fakeBackend struct {
	mu        sync.Mutex
	docs      map[string]json.RawMessage
	errs      map[string]error
	gates     map[string]chan struct{}
	calls     map[string]int
	mutations []string
	reject    error
	nextID    int64
	gold      int64
}

func newFakeBackend() *fakeBackend {
	f := &fakeBackend{
		docs:   make(map[string]json.RawMessage),
		errs:   make(map[string]error),
		gates:  make(map[string]chan struct{}),
		calls:  make(map[string]int),
		nextID: 1,
		gold:   250,
	}
	for _, n := range AllNames {
		f.docs[n.Path()] = json.RawMessage(fmt.Sprintf(`{"subsystem":%q,"rev":1}`, n))
	}
	return f
}

func (f *fakeBackend) setDoc(path, doc string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[path] = json.RawMessage(doc)
}

func (f *fakeBackend) setErr(path string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[path] = err
}

func (f *fakeBackend) block(path string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	gate := make(chan struct{})
	f.gates[path] = gate
	return gate
}

func (f *fakeBackend) Calls(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[path]
}

func (f *fakeBackend) Mutations() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.mutations...)
}

func (f *fakeBackend) ImportCharacter(ctx context.Context, filePath string) (*backend.Character, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextID
	f.nextID++
	return &backend.Character{ID: id, Name: "Aribeth", Gold: f.gold}, nil
}

func (f *fakeBackend) GetCharacter(ctx context.Context, id int64) (*backend.Character, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &backend.Character{ID: id, Name: "Aribeth", Gold: f.gold, FilePath: "/saves/reloaded.bic"}, nil
}

func (f *fakeBackend) GetSubsystem(ctx context.Context, id int64, subsystem string) (json.RawMessage, error) {
	f.mu.Lock()
	f.calls[subsystem]++
	doc, err, gate := f.docs[subsystem], f.errs[subsystem], f.gates[subsystem]
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (f *fakeBackend) mutate(name string) (*backend.MutationResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mutations = append(f.mutations, name)
	if f.reject != nil {
		return &backend.MutationResult{Success: false, Message: f.reject.Error()}, f.reject
	}
	return &backend.MutationResult{Success: true, Message: name + " ok"}, nil
}

func (f *fakeBackend) AddFeat(ctx context.Context, id int64, featID int) (*backend.MutationResult, error) {
	return f.mutate(fmt.Sprintf("add_feat:%d", featID))
}

func (f *fakeBackend) RemoveFeat(ctx context.Context, id int64, featID int) (*backend.MutationResult, error) {
	return f.mutate(fmt.Sprintf("remove_feat:%d", featID))
}

func (f *fakeBackend) AddSpell(ctx context.Context, id int64, req backend.SpellRequest) (*backend.MutationResult, error) {
	return f.mutate(fmt.Sprintf("add_spell:%d", req.SpellID))
}

func (f *fakeBackend) RemoveSpell(ctx context.Context, id int64, req backend.SpellRequest) (*backend.MutationResult, error) {
	return f.mutate(fmt.Sprintf("remove_spell:%d", req.SpellID))
}

func (f *fakeBackend) EquipItem(ctx context.Context, id int64, req backend.EquipRequest) (*backend.MutationResult, error) {
	return f.mutate(fmt.Sprintf("equip_item:%d:%s", req.InventoryIndex, req.Slot))
}

func (f *fakeBackend) UnequipItem(ctx context.Context, id int64, slot string) (*backend.MutationResult, error) {
	return f.mutate("unequip_item:" + slot)
}

func (f *fakeBackend) DeleteItem(ctx context.Context, id int64, inventoryIndex int) (*backend.MutationResult, error) {
	return f.mutate(fmt.Sprintf("delete_item:%d", inventoryIndex))
}

func (f *fakeBackend) UpdateGold(ctx context.Context, id int64, gold int64) (*backend.MutationResult, error) {
	res, err := f.mutate(fmt.Sprintf("update_gold:%d", gold))
	if err == nil {
		f.mu.Lock()
		f.gold = gold
		f.mu.Unlock()
	}
	return res, err
}

func (f *fakeBackend) SaveCharacter(ctx context.Context, id int64, createBackup bool) (*backend.MutationResult, error) {
	return f.mutate(fmt.Sprintf("save_character:%t", createBackup))
}
