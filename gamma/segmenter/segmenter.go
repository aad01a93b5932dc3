package segmenter

import (
	"encoding/binary"
	"sync"

	"github.com/gagliardetto/solana-go"
)

// Proof is a registered segmenter's signature over a swap message.
type Proof struct {
	Segmenter solana.PublicKey
	Signature solana.Signature
}

// Registry holds the order-flow segmenters whose swaps are treated as
// trusted.
type Registry struct {
	mu         sync.RWMutex
	segmenters map[solana.PublicKey]struct{}
}

func NewRegistry(segmenters ...solana.PublicKey) *Registry {
	r := &Registry{segmenters: make(map[solana.PublicKey]struct{}, len(segmenters))}
	for _, s := range segmenters {
		r.segmenters[s] = struct{}{}
	}
	return r
}

func (r *Registry) Add(segmenter solana.PublicKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.segmenters[segmenter] = struct{}{}
}

func (r *Registry) Remove(segmenter solana.PublicKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.segmenters, segmenter)
}

func (r *Registry) IsRegistered(segmenter solana.PublicKey) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.segmenters[segmenter]
	return ok
}

// Verify reports whether proof was produced by a registered segmenter over
// message. A nil proof is never trusted.
func (r *Registry) Verify(proof *Proof, message []byte) bool {
	if r == nil || proof == nil || !r.IsRegistered(proof.Segmenter) {
		return false
	}
	return proof.Signature.Verify(proof.Segmenter, message)
}

// SwapMessage is the byte string a segmenter signs to vouch for a swap:
// pool, payer, direction flag, amount and bound, little-endian.
func SwapMessage(pool, payer solana.PublicKey, baseInput bool, amount, bound uint64) []byte {
	msg := make([]byte, 0, 32+32+1+8+8)
	msg = append(msg, pool[:]...)
	msg = append(msg, payer[:]...)
	if baseInput {
		msg = append(msg, 1)
	} else {
		msg = append(msg, 0)
	}
	msg = binary.LittleEndian.AppendUint64(msg, amount)
	return binary.LittleEndian.AppendUint64(msg, bound)
}

// Sign produces a proof with key. Segmenters use it off the swap path.
func Sign(key solana.PrivateKey, message []byte) (*Proof, error) {
	sig, err := key.Sign(message)
	if err != nil {
		return nil, err
	}
	return &Proof{Segmenter: key.PublicKey(), Signature: sig}, nil
}
