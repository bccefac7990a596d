package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"liquidityBuilder/internal/model"
)

func TestJsonlStorageAppendsBatches(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "tokens.jsonl")
	store := NewJsonlStorage(path)

	first := []model.Token{{Address: common.HexToAddress("0x01"), Symbol: "A", Name: "Token A", Decimals: 18}}
	second := []model.Token{{Address: common.HexToAddress("0x02"), Symbol: "B", Name: "Token B", Decimals: 6}}
	if err := store.PutTokenBatch(context.Background(), first); err != nil {
		t.Fatalf("first batch: %v", err)
	}
	if err := store.PutTokenBatch(context.Background(), second); err != nil {
		t.Fatalf("second batch: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer file.Close()

	var lines []tokenLine
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var line tokenLine
		if err := json.Unmarshal(scanner.Bytes(), &line); err != nil {
			t.Fatalf("decode line: %v", err)
		}
		lines = append(lines, line)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[1].Symbol != "B" || lines[1].Decimals != 6 {
		t.Fatalf("unexpected second line: %+v", lines[1])
	}
	if lines[0].Address != common.HexToAddress("0x01").Hex() {
		t.Fatalf("unexpected address: %s", lines[0].Address)
	}
}

func TestJsonlStorageHonorsCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	store := NewJsonlStorage(filepath.Join(t.TempDir(), "tokens.jsonl"))
	err := store.PutTokenBatch(ctx, []model.Token{{Decimals: 18}})
	if err == nil {
		t.Fatalf("expected cancel error")
	}
}
