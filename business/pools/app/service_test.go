package app

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/arb-engine/business/pools/domain"
	"github.com/fd1az/arb-engine/internal/apperror"
	"github.com/fd1az/arb-engine/internal/logger"
	"github.com/fd1az/arb-engine/internal/ratelimit"
)

type fakeFetcher struct {
	pools map[common.Address]domain.Pool
	errs  map[common.Address]error
}

func (f *fakeFetcher) FetchPool(ctx context.Context, address common.Address) (domain.Pool, error) {
	if err, ok := f.errs[address]; ok {
		return domain.Pool{}, err
	}
	return f.pools[address], nil
}

func testLogger() logger.LoggerInterface {
	return logger.New(io.Discard, logger.LevelInfo, "test", nil)
}

func addr(n byte) common.Address {
	return common.BytesToAddress([]byte{n})
}

func healthyPool(address common.Address, protocol domain.Protocol) domain.Pool {
	return domain.Pool{
		Address:  address,
		Token0:   addr(0xA1),
		Token1:   addr(0xA2),
		Reserve0: 1000,
		Reserve1: 2000,
		Protocol: protocol,
		FeeBps:   30,
	}
}

func newService(f PoolFetcher, addresses []common.Address) *SnapshotService {
	return NewSnapshotService(f, ratelimit.New(1000, 100), SnapshotConfig{
		Addresses:   addresses,
		Concurrency: 4,
	}, testLogger())
}

func TestSnapshotTake(t *testing.T) {
	p1, p2 := addr(1), addr(2)
	fetcher := &fakeFetcher{pools: map[common.Address]domain.Pool{
		p1: healthyPool(p1, domain.ProtocolUniswapV2),
		p2: healthyPool(p2, domain.ProtocolSushiswap),
	}}

	snapshot, err := newService(fetcher, []common.Address{p1, p2}).Take(context.Background())
	if err != nil {
		t.Fatalf("Take() error: %v", err)
	}
	if len(snapshot.Pools) != 2 {
		t.Errorf("Take() returned %d pools, want 2", len(snapshot.Pools))
	}
	if snapshot.TakenAt.IsZero() {
		t.Error("TakenAt not set")
	}
}

func TestSnapshotExcludesDegeneratePools(t *testing.T) {
	p1, p2 := addr(1), addr(2)
	degenerate := healthyPool(p2, domain.ProtocolUniswapV2)
	degenerate.Reserve0 = 0

	fetcher := &fakeFetcher{pools: map[common.Address]domain.Pool{
		p1: healthyPool(p1, domain.ProtocolUniswapV2),
		p2: degenerate,
	}}

	snapshot, err := newService(fetcher, []common.Address{p1, p2}).Take(context.Background())
	if err != nil {
		t.Fatalf("Take() error: %v", err)
	}
	if len(snapshot.Pools) != 1 {
		t.Fatalf("Take() returned %d pools, want 1", len(snapshot.Pools))
	}
	if snapshot.Pools[0].Address != p1 {
		t.Errorf("wrong pool survived: %s", snapshot.Pools[0].Address.Hex())
	}
}

func TestSnapshotExcludesUnsupportedProtocols(t *testing.T) {
	p1, p2 := addr(1), addr(2)
	fetcher := &fakeFetcher{pools: map[common.Address]domain.Pool{
		p1: healthyPool(p1, domain.ProtocolUniswapV2),
		p2: healthyPool(p2, domain.ProtocolUnknown),
	}}

	svc := NewSnapshotService(fetcher, ratelimit.New(1000, 100), SnapshotConfig{
		Addresses:          []common.Address{p1, p2},
		SupportedProtocols: []domain.Protocol{domain.ProtocolUniswapV2},
		Concurrency:        2,
	}, testLogger())

	snapshot, err := svc.Take(context.Background())
	if err != nil {
		t.Fatalf("Take() error: %v", err)
	}
	if len(snapshot.Pools) != 1 {
		t.Errorf("Take() returned %d pools, want 1", len(snapshot.Pools))
	}
}

func TestSnapshotToleratesFetchErrors(t *testing.T) {
	p1, p2 := addr(1), addr(2)
	fetcher := &fakeFetcher{
		pools: map[common.Address]domain.Pool{p1: healthyPool(p1, domain.ProtocolUniswapV2)},
		errs:  map[common.Address]error{p2: errors.New("rpc timeout")},
	}

	snapshot, err := newService(fetcher, []common.Address{p1, p2}).Take(context.Background())
	if err != nil {
		t.Fatalf("Take() error: %v", err)
	}
	if len(snapshot.Pools) != 1 {
		t.Errorf("Take() returned %d pools, want 1", len(snapshot.Pools))
	}
}

func TestSnapshotFailsWhenNothingUsable(t *testing.T) {
	p1 := addr(1)
	fetcher := &fakeFetcher{errs: map[common.Address]error{p1: errors.New("rpc down")}}

	_, err := newService(fetcher, []common.Address{p1}).Take(context.Background())
	if !apperror.IsCode(err, apperror.CodePoolFetchFailed) {
		t.Errorf("Take() error = %v, want code %s", err, apperror.CodePoolFetchFailed)
	}
}
