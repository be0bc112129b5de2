package algebra

// Vec3 is a three-vector over any algebra.
type Vec3[T Number[T]] [3]T

// Add returns a+b.
func (a Vec3[T]) Add(b Vec3[T]) Vec3[T] {
	return Vec3[T]{a[0].Add(b[0]), a[1].Add(b[1]), a[2].Add(b[2])}
}

// Sub returns a-b.
func (a Vec3[T]) Sub(b Vec3[T]) Vec3[T] {
	return Vec3[T]{a[0].Sub(b[0]), a[1].Sub(b[1]), a[2].Sub(b[2])}
}

// Scale returns s·a.
func (a Vec3[T]) Scale(s T) Vec3[T] {
	return Vec3[T]{a[0].Mul(s), a[1].Mul(s), a[2].Mul(s)}
}

// ScaleFloat returns f·a.
func (a Vec3[T]) ScaleFloat(f float64) Vec3[T] {
	return Vec3[T]{a[0].Scale(f), a[1].Scale(f), a[2].Scale(f)}
}

// Dot returns a·b.
func (a Vec3[T]) Dot(b Vec3[T]) T {
	return a[0].Mul(b[0]).Add(a[1].Mul(b[1])).Add(a[2].Mul(b[2]))
}

// Cross returns a×b.
func (a Vec3[T]) Cross(b Vec3[T]) Vec3[T] {
	return Vec3[T]{
		a[1].Mul(b[2]).Sub(a[2].Mul(b[1])),
		a[2].Mul(b[0]).Sub(a[0].Mul(b[2])),
		a[0].Mul(b[1]).Sub(a[1].Mul(b[0])),
	}
}

// Norm returns |a|.
func (a Vec3[T]) Norm() T {
	return a.Dot(a).Sqrt()
}

// Unit returns a/|a|.
func (a Vec3[T]) Unit() Vec3[T] {
	n := a.Norm()
	return Vec3[T]{a[0].Div(n), a[1].Div(n), a[2].Div(n)}
}

// Split returns the position and velocity halves of a six-state.
func Split[T Number[T]](s []T) (r, v Vec3[T]) {
	copy(r[:], s[0:3])
	copy(v[:], s[3:6])
	return
}

// Join concatenates a position and a velocity into a six-state.
func Join[T Number[T]](r, v Vec3[T]) []T {
	return []T{r[0], r[1], r[2], v[0], v[1], v[2]}
}
