package compress

import "math"

// log2Ceil returns the exponent of the smallest power of two >= n, computed
// the way the H-transform sizes its passes. It is 0 for n <= 1.
func log2Ceil(n int) int {
	if n <= 1 {
		return 0
	}

	log2n := int(math.Log(float64(float32(n)))/math.Log(2.0) + 0.5)
	if n > 1<<log2n {
		log2n++
	}

	return log2n
}

// htrans applies the forward H-transform in place to a, an nx by ny array
// stored with ny as the fast axis. Coefficients are rounded so that hinv
// restores the input exactly.
func htrans(a []int64, nx, ny int) {
	nmax := max(nx, ny)
	log2n := log2Ceil(nmax)
	tmp := make([]int64, (nmax+1)/2)

	shift := uint(0)
	mask := int64(-2)
	mask2 := mask << 1
	prnd := int64(1)
	prnd2 := prnd << 1
	nrnd2 := prnd2 - 1

	round := func(v int64) int64 {
		if v >= 0 {
			return (v + prnd) & mask
		}

		return v & mask
	}
	round2 := func(v int64) int64 {
		if v >= 0 {
			return (v + prnd2) & mask2
		}

		return (v + nrnd2) & mask2
	}

	nxtop, nytop := nx, ny
	for range log2n {
		oddx := nxtop % 2
		oddy := nytop % 2

		i := 0
		for ; i < nxtop-oddx; i += 2 {
			s00 := i * ny
			s10 := s00 + ny
			j := 0
			for ; j < nytop-oddy; j += 2 {
				h0 := (a[s10+1] + a[s10] + a[s00+1] + a[s00]) >> shift
				hx := (a[s10+1] + a[s10] - a[s00+1] - a[s00]) >> shift
				hy := (a[s10+1] - a[s10] + a[s00+1] - a[s00]) >> shift
				hc := (a[s10+1] - a[s10] - a[s00+1] + a[s00]) >> shift

				a[s10+1] = hc
				a[s10] = round(hx)
				a[s00+1] = round(hy)
				a[s00] = round2(h0)
				s00 += 2
				s10 += 2
			}
			if oddy == 1 {
				h0 := (a[s10] + a[s00]) << (1 - shift)
				hx := (a[s10] - a[s00]) << (1 - shift)
				a[s10] = round(hx)
				a[s00] = round2(h0)
			}
		}
		if oddx == 1 {
			s00 := i * ny
			j := 0
			for ; j < nytop-oddy; j += 2 {
				h0 := (a[s00+1] + a[s00]) << (1 - shift)
				hy := (a[s00+1] - a[s00]) << (1 - shift)
				a[s00+1] = round(hy)
				a[s00] = round2(h0)
				s00 += 2
			}
			if oddy == 1 {
				a[s00] = round2(a[s00] << (2 - shift))
			}
		}

		// group even coefficients before odd ones along both axes
		for i := range nxtop {
			shuffle(a[ny*i:], nytop, 1, tmp)
		}
		for j := range nytop {
			shuffle(a[j:], nxtop, ny, tmp)
		}

		nxtop = (nxtop + 1) >> 1
		nytop = (nytop + 1) >> 1

		// the divisor doubles after the first pass
		shift = 1
		mask = mask2
		prnd = prnd2
		mask2 <<= 1
		prnd2 <<= 1
		nrnd2 = prnd2 - 1
	}
}

// hinv inverts htrans in place.
func hinv(a []int64, nx, ny int) {
	nmax := max(nx, ny)
	log2n := log2Ceil(nmax)
	if log2n == 0 {
		return
	}
	tmp := make([]int64, (nmax+1)/2)

	shift := uint(1)
	bit0 := int64(1) << (log2n - 1)
	bit1 := bit0 << 1
	bit2 := bit0 << 2
	mask0 := -bit0
	mask1 := mask0 << 1
	mask2 := mask0 << 2
	prnd0 := bit0 >> 1
	prnd1 := bit1 >> 1
	prnd2 := bit2 >> 1
	nrnd0 := prnd0 - 1
	nrnd1 := prnd1 - 1
	nrnd2 := prnd2 - 1

	// h0 is a multiple of bit2
	if a[0] >= 0 {
		a[0] = (a[0] + prnd2) & mask2
	} else {
		a[0] = (a[0] + nrnd2) & mask2
	}

	round1 := func(v int64) int64 {
		if v >= 0 {
			return (v + prnd1) & mask1
		}

		return (v + nrnd1) & mask1
	}

	nxtop, nytop := 1, 1
	nxf, nyf := nx, ny
	c := 1 << log2n
	for k := log2n - 1; k >= 0; k-- {
		// ntop[k-1] = (ntop[k]+1)/2 with ntop[log2n] = n
		c >>= 1
		nxtop <<= 1
		nytop <<= 1
		if nxf <= c {
			nxtop--
		} else {
			nxf -= c
		}
		if nyf <= c {
			nytop--
		} else {
			nyf -= c
		}

		if k == 0 {
			nrnd0 = 0
			shift = 2
		}

		for i := range nxtop {
			unshuffle(a[ny*i:], nytop, 1, tmp)
		}
		for j := range nytop {
			unshuffle(a[j:], nxtop, ny, tmp)
		}

		oddx := nxtop % 2
		oddy := nytop % 2

		i := 0
		for ; i < nxtop-oddx; i += 2 {
			s00 := ny * i
			s10 := s00 + ny
			j := 0
			for ; j < nytop-oddy; j += 2 {
				h0 := a[s00]
				hx := round1(a[s10])
				hy := round1(a[s00+1])
				hc := a[s10+1]
				if hc >= 0 {
					hc = (hc + prnd0) & mask0
				} else {
					hc = (hc + nrnd0) & mask0
				}

				// propagate bit0 of hc to hx and hy
				lowbit0 := hc & bit0
				if hx >= 0 {
					hx -= lowbit0
				} else {
					hx += lowbit0
				}
				if hy >= 0 {
					hy -= lowbit0
				} else {
					hy += lowbit0
				}

				// propagate bits 0 and 1 of hc, hx, hy to h0
				lowbit1 := (hc ^ hx ^ hy) & bit1
				switch {
				case h0 >= 0:
					h0 += lowbit0 - lowbit1
				case lowbit0 == 0:
					h0 += lowbit1
				default:
					h0 += lowbit0 - lowbit1
				}

				a[s10+1] = (h0 + hx + hy + hc) >> shift
				a[s10] = (h0 + hx - hy - hc) >> shift
				a[s00+1] = (h0 - hx + hy - hc) >> shift
				a[s00] = (h0 - hx - hy + hc) >> shift
				s00 += 2
				s10 += 2
			}
			if oddy == 1 {
				h0 := a[s00]
				hx := round1(a[s10])
				lowbit1 := hx & bit1
				if h0 >= 0 {
					h0 -= lowbit1
				} else {
					h0 += lowbit1
				}
				a[s10] = (h0 + hx) >> shift
				a[s00] = (h0 - hx) >> shift
			}
		}
		if oddx == 1 {
			s00 := ny * i
			j := 0
			for ; j < nytop-oddy; j += 2 {
				h0 := a[s00]
				hy := round1(a[s00+1])
				lowbit1 := hy & bit1
				if h0 >= 0 {
					h0 -= lowbit1
				} else {
					h0 += lowbit1
				}
				a[s00+1] = (h0 + hy) >> shift
				a[s00] = (h0 - hy) >> shift
				s00 += 2
			}
			if oddy == 1 {
				a[s00] >>= shift
			}
		}

		bit1 = bit0
		bit0 >>= 1
		mask1 = mask0
		mask0 >>= 1
		prnd1 = prnd0
		prnd0 >>= 1
		nrnd1 = nrnd0
		nrnd0 = prnd0 - 1
	}
}

// shuffle moves the even elements of the n element vector a, with stride n2,
// to the front and the odd elements behind them.
func shuffle(a []int64, n, n2 int, tmp []int64) {
	t := 0
	for i := 1; i < n; i += 2 {
		tmp[t] = a[i*n2]
		t++
	}

	p := n2
	for i := 2; i < n; i += 2 {
		a[p] = a[i*n2]
		p += n2
	}

	for i := range t {
		a[p] = tmp[i]
		p += n2
	}
}

// unshuffle reverses shuffle.
func unshuffle(a []int64, n, n2 int, tmp []int64) {
	nhalf := (n + 1) >> 1

	t := 0
	for i := nhalf; i < n; i++ {
		tmp[t] = a[i*n2]
		t++
	}

	for i := nhalf - 1; i >= 0; i-- {
		a[2*i*n2] = a[i*n2]
	}

	t = 0
	for i := 1; i < n; i += 2 {
		a[i*n2] = tmp[t]
		t++
	}
}
