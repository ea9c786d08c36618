package similarity

const (
	ssimWindow = 8
	ssimStride = 4
	ssimC1     = (0.01 * 255) * (0.01 * 255)
	ssimC2     = (0.03 * 255) * (0.03 * 255)
)

// structuralScore is the mean SSIM over sliding windows, scaled to 0-100 and
// floored at 0.
func structuralScore(a, b plane) float64 {
	if a.w != b.w || a.h != b.h || a.w < ssimWindow || a.h < ssimWindow {
		return 0
	}
	ia := newIntegral(a.w, a.h, func(i int) float64 { return a.pix[i] })
	ib := newIntegral(b.w, b.h, func(i int) float64 { return b.pix[i] })
	iaa := newIntegral(a.w, a.h, func(i int) float64 { return a.pix[i] * a.pix[i] })
	ibb := newIntegral(b.w, b.h, func(i int) float64 { return b.pix[i] * b.pix[i] })
	iab := newIntegral(a.w, a.h, func(i int) float64 { return a.pix[i] * b.pix[i] })

	const area = float64(ssimWindow * ssimWindow)
	var total float64
	count := 0
	for y := 0; y+ssimWindow <= a.h; y += ssimStride {
		for x := 0; x+ssimWindow <= a.w; x += ssimStride {
			x1, y1 := x+ssimWindow, y+ssimWindow
			ma := ia.rect(x, y, x1, y1) / area
			mb := ib.rect(x, y, x1, y1) / area
			va := iaa.rect(x, y, x1, y1)/area - ma*ma
			vb := ibb.rect(x, y, x1, y1)/area - mb*mb
			cov := iab.rect(x, y, x1, y1)/area - ma*mb
			num := (2*ma*mb + ssimC1) * (2*cov + ssimC2)
			den := (ma*ma + mb*mb + ssimC1) * (va + vb + ssimC2)
			total += num / den
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return clampScore(total / float64(count) * 100)
}
