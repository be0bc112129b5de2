package algebra

import (
	"fmt"
	"sync"
)

var bases sync.Map // basisKey -> *Basis

type basisKey struct {
	nvar, degree int
}

// Basis describes the monomials of a truncated polynomial in nvar variables up to a total degree.
// Monomials are stored in graded order: the constant first, then the nvar first-order terms in
// variable order, and so on. A Basis is immutable and shared by every polynomial built on it.
type Basis struct {
	nvar, degree int
	exps         [][]int
	orders       []int
	upto         []int // upto[d] is the number of monomials of order <= d
	index        map[uint64]int

	taylorOnce sync.Once
	taylorMul  []taylorTerm
	chebOnce   sync.Once
	chebMul    []chebTerm
}

type taylorTerm struct {
	i, j, k int32
}

type chebTerm struct {
	i, j, k int32
	w       float64
}

// NewBasis returns the shared basis of nvar variables truncated at the given total degree.
// It panics if nvar < 1 or degree < 0.
func NewBasis(nvar, degree int) *Basis {
	if nvar < 1 || degree < 0 {
		panic(fmt.Errorf("invalid polynomial basis: %d variables, degree %d", nvar, degree))
	}
	key := basisKey{nvar, degree}
	if b, ok := bases.Load(key); ok {
		return b.(*Basis)
	}
	b, _ := bases.LoadOrStore(key, buildBasis(nvar, degree))
	return b.(*Basis)
}

func buildBasis(nvar, degree int) *Basis {
	b := &Basis{nvar: nvar, degree: degree, index: make(map[uint64]int)}
	e := make([]int, nvar)
	var rec func(pos, left, order int)
	rec = func(pos, left, order int) {
		if pos == nvar-1 {
			e[pos] = left
			mono := make([]int, nvar)
			copy(mono, e)
			b.index[b.key(mono)] = len(b.exps)
			b.exps = append(b.exps, mono)
			b.orders = append(b.orders, order)
			return
		}
		for v := left; v >= 0; v-- {
			e[pos] = v
			rec(pos+1, left-v, order)
		}
	}
	b.upto = make([]int, degree+1)
	for d := 0; d <= degree; d++ {
		rec(0, d, d)
		b.upto[d] = len(b.exps)
	}
	return b
}

func (b *Basis) key(e []int) uint64 {
	var k, m uint64 = 0, 1
	for _, v := range e {
		k += uint64(v) * m
		m *= uint64(b.degree + 1)
	}
	return k
}

// Vars returns the number of variables.
func (b *Basis) Vars() int { return b.nvar }

// Degree returns the truncation degree.
func (b *Basis) Degree() int { return b.degree }

// Len returns the number of monomials.
func (b *Basis) Len() int { return len(b.exps) }

// Exponents returns a copy of the exponents of the k-th monomial.
func (b *Basis) Exponents(k int) []int {
	out := make([]int, b.nvar)
	copy(out, b.exps[k])
	return out
}

// Order returns the total degree of the k-th monomial.
func (b *Basis) Order(k int) int { return b.orders[k] }

// Index returns the position of the monomial with the given exponents, or -1.
func (b *Basis) Index(e []int) int {
	if len(e) != b.nvar {
		return -1
	}
	order := 0
	for _, v := range e {
		if v < 0 {
			return -1
		}
		order += v
	}
	if order > b.degree {
		return -1
	}
	return b.index[b.key(e)]
}

func (b *Basis) String() string {
	return fmt.Sprintf("basis(vars=%d, degree=%d)", b.nvar, b.degree)
}

// taylorTable lists every monomial pair whose product survives truncation.
func (b *Basis) taylorTable() []taylorTerm {
	b.taylorOnce.Do(func() {
		sum := make([]int, b.nvar)
		for i := range b.exps {
			for j := 0; j < b.upto[b.degree-b.orders[i]]; j++ {
				for v := 0; v < b.nvar; v++ {
					sum[v] = b.exps[i][v] + b.exps[j][v]
				}
				b.taylorMul = append(b.taylorMul, taylorTerm{int32(i), int32(j), int32(b.index[b.key(sum)])})
			}
		}
	})
	return b.taylorMul
}

// chebTable expands T_a·T_b = (T_{a+b} + T_{|a-b|})/2 in every variable and keeps the products of
// total degree within the basis.
func (b *Basis) chebTable() []chebTerm {
	b.chebOnce.Do(func() {
		out := make([]int, b.nvar)
		for i := range b.exps {
			for j := range b.exps {
				ei, ej := b.exps[i], b.exps[j]
				var expand func(v, order int, w float64)
				expand = func(v, order int, w float64) {
					if order > b.degree {
						return
					}
					if v == b.nvar {
						b.chebMul = append(b.chebMul, chebTerm{int32(i), int32(j), int32(b.index[b.key(out)]), w})
						return
					}
					p, q := ei[v], ej[v]
					if p == 0 || q == 0 {
						out[v] = p + q
						expand(v+1, order+p+q, w)
						return
					}
					out[v] = p + q
					expand(v+1, order+p+q, 0.5*w)
					d := p - q
					if d < 0 {
						d = -d
					}
					out[v] = d
					expand(v+1, order+d, 0.5*w)
				}
				expand(0, 0, 1)
			}
		}
	})
	return b.chebMul
}
