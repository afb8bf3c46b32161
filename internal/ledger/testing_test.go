package ledger

import (
	"context"
	"crypto/ecdsa"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/trigg3rX/cipherwork/internal/ledger/store"
	"github.com/trigg3rX/cipherwork/pkg/cryptography"
	"github.com/trigg3rX/cipherwork/pkg/eventbus"
	"github.com/trigg3rX/cipherwork/pkg/events"
	"github.com/trigg3rX/cipherwork/pkg/fhe"
	"github.com/trigg3rX/cipherwork/pkg/logging"
	"github.com/trigg3rX/cipherwork/pkg/types"
)

const (
	requester = "0x1111111111111111111111111111111111111111"
	alice     = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	bob       = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
)

var epoch = time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	t           *testing.T
	ledger      *Ledger
	store       *store.MemoryStore
	service     *fhe.ThresholdService
	signer      *fhe.Signer
	clock       *fakeClock
	coprocessor *ecdsa.PrivateKey
	network     *ecdsa.PrivateKey
	kms         []*ecdsa.PrivateKey
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{t: t, store: store.NewMemoryStore(), clock: &fakeClock{now: epoch}}
	f.coprocessor = mustKey(t)
	f.network = mustKey(t)
	signers := make([]string, 0, 3)
	for i := 0; i < 3; i++ {
		k := mustKey(t)
		f.kms = append(f.kms, k)
		signers = append(signers, cryptography.AddressOf(k))
	}

	material := fhe.KeyMaterial{
		Domain:            fhe.Domain{Name: "cipherwork", Version: "1", ChainID: 31337, Verifier: "0x00000000000000000000000000000000000000aa"},
		CoprocessorSigner: cryptography.AddressOf(f.coprocessor),
		KMSSigners:        signers,
		Threshold:         2,
	}
	var err error
	f.service, err = fhe.NewThresholdService(material, logging.NewNoOpLogger())
	require.NoError(t, err)
	f.signer = fhe.NewSigner(material.Domain)

	f.ledger = f.open()
	return f
}

// open builds a ledger over the fixture's store, as a restart would
func (f *fixture) open() *Ledger {
	f.t.Helper()
	cfg := DefaultConfig()
	cfg.Clock = f.clock.Now
	l, err := New(context.Background(), cfg, f.service, f.store, logging.NewNoOpLogger())
	require.NoError(f.t, err)
	return l
}

func mustKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	k, err := crypto.GenerateKey()
	require.NoError(t, err)
	return k
}

func (f *fixture) createRequest(key string, value uint32, deadline time.Time) CreateTaskRequest {
	f.t.Helper()
	ciphertext, err := f.signer.EncryptUint32(crypto.FromECDSAPub(&f.network.PublicKey), value)
	require.NoError(f.t, err)
	proof, err := f.signer.InputProof(ciphertext, requester, f.coprocessor)
	require.NoError(f.t, err)

	return CreateTaskRequest{
		Key:          key,
		Title:        "task " + key,
		Ciphertext:   ciphertext,
		InputProof:   proof,
		RewardAmount: types.MustParseBigInt("1000000000000000000").Int,
		Deadline:     deadline,
		Requester:    requester,
	}
}

func (f *fixture) createTask(key string, value uint32) types.Task {
	f.t.Helper()
	task, err := f.ledger.CreateTask(context.Background(), f.createRequest(key, value, epoch.Add(time.Hour)))
	require.NoError(f.t, err)
	return task
}

func (f *fixture) registerWorker(identity string) {
	f.t.Helper()
	_, err := f.ledger.RegisterWorker(context.Background(), identity)
	require.NoError(f.t, err)
}

// opening returns a valid cleartext and threshold proof for a task's handle
func (f *fixture) opening(task types.Task, value uint32) ([]byte, []byte) {
	f.t.Helper()
	cleartexts, proof, err := f.signer.DecryptionProof([]fhe.Handle{task.Handle}, []uint32{value}, nil, f.kms[0], f.kms[1])
	require.NoError(f.t, err)
	return cleartexts, proof
}

func (f *fixture) submit(task types.Task, claimant string, value uint32) (types.Task, error) {
	cleartexts, proof := f.opening(task, value)
	return f.ledger.SubmitResult(context.Background(), SubmitResultRequest{
		Key:        task.Key,
		Claimant:   claimant,
		Cleartexts: cleartexts,
		Proof:      proof,
	})
}

// drain returns the events already buffered for sub
func drain(sub *eventbus.Subscription) []events.Event {
	var out []events.Event
	for {
		select {
		case ev, ok := <-sub.C:
			if !ok {
				return out
			}
			out = append(out, ev)
		default:
			return out
		}
	}
}

func eventTypes(evs []events.Event) []events.EventType {
	out := make([]events.EventType, 0, len(evs))
	for _, ev := range evs {
		out = append(out, ev.Type)
	}
	return out
}
