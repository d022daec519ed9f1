package plain

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"kws_lib/nn/layers"
	"kws_lib/tensor"
)

// window resolves one spatial axis of a windowed op: the output length and
// the number of padded positions before the first input element. Same
// padding splits the total pad with the smaller half in front, like
// TensorFlow.
func window(in, k, stride int, p layers.Padding) (out, before int) {
	if p == layers.PaddingSame {
		out = (in + stride - 1) / stride
		total := (out-1)*stride + k - in
		if total < 0 {
			total = 0
		}
		return out, total / 2
	}
	if in < k {
		return 0, 0
	}
	return (in-k)/stride + 1, 0
}

func hwc(x *tensor.Tensor) (t, f, c int, err error) {
	if len(x.Shape) != 3 {
		return 0, 0, 0, fmt.Errorf("expected a (time, frequency, channels) tensor, got shape %v", x.Shape)
	}
	return x.Shape[0], x.Shape[1], x.Shape[2], nil
}

// conv2D runs a standard convolution. kernel is [kt, kf, cin, filters].
func conv2D(x *tensor.Tensor, l layers.Conv2D, kernel, bias *tensor.Tensor) (*tensor.Tensor, error) {
	t, f, cin, err := hwc(x)
	if err != nil {
		return nil, err
	}
	ot, pt := window(t, l.KernelT, l.StrideT, l.Padding)
	of, pf := window(f, l.KernelF, l.StrideF, l.Padding)
	out := tensor.New(ot, of, l.Filters)

	for y := 0; y < ot; y++ {
		for z := 0; z < of; z++ {
			base := (y*of + z) * l.Filters
			copy(out.Data[base:base+l.Filters], bias.Data)
			for dy := 0; dy < l.KernelT; dy++ {
				iy := y*l.StrideT + dy - pt
				if iy < 0 || iy >= t {
					continue
				}
				for dz := 0; dz < l.KernelF; dz++ {
					iz := z*l.StrideF + dz - pf
					if iz < 0 || iz >= f {
						continue
					}
					for ic := 0; ic < cin; ic++ {
						v := x.Data[(iy*f+iz)*cin+ic]
						w := kernel.Data[((dy*l.KernelF+dz)*cin+ic)*l.Filters:]
						for oc := 0; oc < l.Filters; oc++ {
							out.Data[base+oc] += v * w[oc]
						}
					}
				}
			}
		}
	}
	return activate(out, l.Activation), nil
}

// depthwiseConv2D convolves each channel separately. kernel is
// [kt, kf, cin, multiplier]; output channel ic*multiplier+m.
func depthwiseConv2D(x *tensor.Tensor, l layers.DepthwiseConv2D, kernel, bias *tensor.Tensor) (*tensor.Tensor, error) {
	t, f, cin, err := hwc(x)
	if err != nil {
		return nil, err
	}
	ot, pt := window(t, l.KernelT, l.StrideT, l.Padding)
	of, pf := window(f, l.KernelF, l.StrideF, l.Padding)
	cout := cin * l.Multiplier
	out := tensor.New(ot, of, cout)

	for y := 0; y < ot; y++ {
		for z := 0; z < of; z++ {
			base := (y*of + z) * cout
			copy(out.Data[base:base+cout], bias.Data)
			for dy := 0; dy < l.KernelT; dy++ {
				iy := y*l.StrideT + dy - pt
				if iy < 0 || iy >= t {
					continue
				}
				for dz := 0; dz < l.KernelF; dz++ {
					iz := z*l.StrideF + dz - pf
					if iz < 0 || iz >= f {
						continue
					}
					for ic := 0; ic < cin; ic++ {
						v := x.Data[(iy*f+iz)*cin+ic]
						for m := 0; m < l.Multiplier; m++ {
							oc := ic*l.Multiplier + m
							out.Data[base+oc] += v * kernel.Data[(dy*l.KernelF+dz)*cout+oc]
						}
					}
				}
			}
		}
	}
	return activate(out, l.Activation), nil
}

// pointwiseConv2D mixes channels at every position. kernel is
// [1, 1, cin, filters].
func pointwiseConv2D(x *tensor.Tensor, l layers.PointwiseConv2D, kernel, bias *tensor.Tensor) (*tensor.Tensor, error) {
	t, f, cin, err := hwc(x)
	if err != nil {
		return nil, err
	}
	out := tensor.New(t, f, l.Filters)
	for p := 0; p < t*f; p++ {
		dst := out.Data[p*l.Filters : (p+1)*l.Filters]
		copy(dst, bias.Data)
		for ic := 0; ic < cin; ic++ {
			v := x.Data[p*cin+ic]
			w := kernel.Data[ic*l.Filters:]
			for oc := range dst {
				dst[oc] += v * w[oc]
			}
		}
	}
	return out, nil
}

// batchNorm applies the inference form gamma*(x-mean)/sqrt(var+eps)+beta
// over the last axis.
func batchNorm(x *tensor.Tensor, l layers.BatchNorm, gamma, beta, mean, variance *tensor.Tensor) *tensor.Tensor {
	c := len(gamma.Data)
	out := tensor.New(x.Shape...)
	if c == 0 {
		return out
	}
	scale := make([]float64, c)
	for i := range scale {
		scale[i] = gamma.Data[i] / math.Sqrt(variance.Data[i]+l.Epsilon)
	}
	for i, v := range x.Data {
		ch := i % c
		out.Data[i] = (v-mean.Data[ch])*scale[ch] + beta.Data[ch]
	}
	return out
}

// pool2D reduces every window per channel. Padded positions are skipped, so
// an average only counts real inputs.
func pool2D(x *tensor.Tensor, l layers.Pool2D) (*tensor.Tensor, error) {
	t, f, c, err := hwc(x)
	if err != nil {
		return nil, err
	}
	if t*f == 0 {
		return tensor.New(0, 0, c), nil
	}
	ot, pt := window(t, l.PoolT, l.StrideT, l.Padding)
	of, pf := window(f, l.PoolF, l.StrideF, l.Padding)
	out := tensor.New(ot, of, c)

	for y := 0; y < ot; y++ {
		for z := 0; z < of; z++ {
			for ch := 0; ch < c; ch++ {
				acc, n := 0.0, 0
				if l.Mode == layers.PoolMax {
					acc = math.Inf(-1)
				}
				for dy := 0; dy < l.PoolT; dy++ {
					iy := y*l.StrideT + dy - pt
					if iy < 0 || iy >= t {
						continue
					}
					for dz := 0; dz < l.PoolF; dz++ {
						iz := z*l.StrideF + dz - pf
						if iz < 0 || iz >= f {
							continue
						}
						v := x.Data[(iy*f+iz)*c+ch]
						if l.Mode == layers.PoolMax {
							acc = math.Max(acc, v)
						} else {
							acc += v
						}
						n++
					}
				}
				if l.Mode == layers.PoolAvg && n > 0 {
					acc /= float64(n)
				}
				out.Data[(y*of+z)*c+ch] = acc
			}
		}
	}
	return out, nil
}

// dense computes x·W + b with W stored [in, units].
func dense(x *tensor.Tensor, l layers.Dense, kernel, bias *tensor.Tensor) *tensor.Tensor {
	in := len(x.Data)
	out := tensor.NewWithData(bias.Data)
	if in > 0 {
		xv := mat.NewDense(1, in, x.Data)
		w := mat.NewDense(in, l.Units, kernel.Data)
		var prod mat.Dense
		prod.Mul(xv, w)
		for j := 0; j < l.Units; j++ {
			out.Data[j] += prod.At(0, j)
		}
	}
	if l.Activation == layers.Softmax {
		return Softmax(out)
	}
	return activate(out, l.Activation)
}

func activate(x *tensor.Tensor, act string) *tensor.Tensor {
	if act == layers.ReLU {
		return tensor.Relu(x)
	}
	return x
}

// Softmax applies the softmax function to a tensor.
func Softmax(logits *tensor.Tensor) *tensor.Tensor {
	softmax := tensor.New(logits.Shape...)
	if len(logits.Data) == 0 {
		return softmax
	}
	maxLogit := logits.Data[0]
	for _, v := range logits.Data {
		if v > maxLogit {
			maxLogit = v
		}
	}
	expSum := 0.0
	for i, v := range logits.Data {
		e := math.Exp(v - maxLogit)
		softmax.Data[i] = e
		expSum += e
	}
	for i := range softmax.Data {
		softmax.Data[i] /= expSum
	}
	return softmax
}
