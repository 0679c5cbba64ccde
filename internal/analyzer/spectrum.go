package analyzer

import (
	"fmt"
	"image"
	"math"
	"math/cmplx"

	xdraw "golang.org/x/image/draw"
	"gonum.org/v1/gonum/dsp/fourier"
)

const (
	spectrumSize    = 256
	spectrumMinSide = 8
)

// spectrumRadii[i] is the distance of bin i from the DC component, with
// frequencies laid out as an unshifted 2D FFT.
var spectrumRadii = radialDistances(spectrumSize)

func radialDistances(n int) []float64 {
	freq := func(k int) float64 {
		if k < n/2 {
			return float64(k)
		}
		return float64(k - n)
	}
	d := make([]float64, n*n)
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			d[y*n+x] = math.Hypot(freq(y), freq(x))
		}
	}
	return d
}

// spectrum is the linear 2D FFT magnitude of a capture resized to
// spectrumSize x spectrumSize and weighted by a Hann window.
type spectrum struct {
	n   int
	mag []float64
}

func hannWindow(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
	}
	return w
}

func computeSpectrum(gray *image.Gray) (*spectrum, error) {
	b := gray.Bounds()
	if b.Dx() < spectrumMinSide || b.Dy() < spectrumMinSide {
		return nil, fmt.Errorf("image %dx%d too small for frequency analysis", b.Dx(), b.Dy())
	}

	n := spectrumSize
	small := image.NewGray(image.Rect(0, 0, n, n))
	xdraw.BiLinear.Scale(small, small.Bounds(), gray, b, xdraw.Src, nil)

	win := hannWindow(n)
	data := make([]complex128, n*n)
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			v := float64(small.Pix[y*small.Stride+x]) * win[y] * win[x]
			data[y*n+x] = complex(v, 0)
		}
	}

	// CmplxFFT keeps work buffers, so each call gets its own.
	fft := fourier.NewCmplxFFT(n)
	buf := make([]complex128, n)
	for y := 0; y < n; y++ {
		row := data[y*n : (y+1)*n]
		fft.Coefficients(buf, row)
		copy(row, buf)
	}
	col := make([]complex128, n)
	for x := 0; x < n; x++ {
		for y := 0; y < n; y++ {
			col[y] = data[y*n+x]
		}
		fft.Coefficients(buf, col)
		for y := 0; y < n; y++ {
			data[y*n+x] = buf[y]
		}
	}

	mag := make([]float64, n*n)
	for i, c := range data {
		mag[i] = cmplx.Abs(c)
	}
	return &spectrum{n: n, mag: mag}, nil
}
