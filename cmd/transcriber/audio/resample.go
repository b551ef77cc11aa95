package audio

// downmix averages interleaved channels into a single mono channel.
func downmix(samples []float32, channels int) []float32 {
	if channels <= 1 {
		return samples
	}

	mono := make([]float32, len(samples)/channels)
	for i := range mono {
		var sum float32
		for c := 0; c < channels; c++ {
			sum += samples[i*channels+c]
		}
		mono[i] = sum / float32(channels)
	}

	return mono
}

// resampleLinear converts samples from srcRate to dstRate through linear interpolation.
func resampleLinear(samples []float32, srcRate, dstRate int) []float32 {
	if srcRate == dstRate || len(samples) == 0 {
		return samples
	}

	ratio := float64(srcRate) / float64(dstRate)
	out := make([]float32, int(float64(len(samples))/ratio))

	for i := range out {
		pos := float64(i) * ratio
		idx := int(pos)
		frac := float32(pos - float64(idx))

		if idx+1 < len(samples) {
			out[i] = samples[idx]*(1-frac) + samples[idx+1]*frac
		} else if idx < len(samples) {
			out[i] = samples[idx]
		}
	}

	return out
}

// Normalize returns a mono buffer at the target sample rate.
func Normalize(samples []float32, channels, rate int) Buffer {
	return Buffer{
		Samples:    resampleLinear(downmix(samples, channels), rate, SampleRate),
		SampleRate: SampleRate,
	}
}
