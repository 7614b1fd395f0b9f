package telephony

// G.711 mu-law codec and the sample-rate conversions between the three audio
// domains in play: Twilio media streams (8 kHz mu-law), recognition
// (16 kHz PCM) and synthesis (48 kHz PCM).

const (
	mulawBias = 0x84
	mulawClip = 32635
)

// EncodeMulaw compresses one 16-bit linear sample to 8-bit mu-law.
func EncodeMulaw(sample int16) byte {
	v := int(sample)
	sign := byte(0)
	if v < 0 {
		v = -v
		sign = 0x80
	}
	if v > mulawClip {
		v = mulawClip
	}
	v += mulawBias
	exponent := 7
	for mask := 0x4000; exponent > 0 && v&mask == 0; exponent-- {
		mask >>= 1
	}
	mantissa := byte(v>>(exponent+3)) & 0x0F
	return ^(sign | byte(exponent)<<4 | mantissa)
}

// DecodeMulaw expands one 8-bit mu-law sample to 16-bit linear.
func DecodeMulaw(b byte) int16 {
	b = ^b
	exponent := (b >> 4) & 0x07
	mantissa := b & 0x0F
	v := ((int(mantissa) << 3) + mulawBias) << exponent
	if b&0x80 != 0 {
		return int16(mulawBias - v)
	}
	return int16(v - mulawBias)
}

// DecodeMulawTo16k expands an 8 kHz mu-law payload to 16 kHz little-endian
// PCM by linear interpolation, the format the recognizer expects.
func DecodeMulawTo16k(payload []byte) []byte {
	if len(payload) == 0 {
		return nil
	}
	out := make([]byte, 0, len(payload)*4)
	prev := DecodeMulaw(payload[0])
	for i, b := range payload {
		cur := DecodeMulaw(b)
		mid := int16((int(prev) + int(cur)) / 2)
		if i == 0 {
			mid = cur
		}
		out = appendSample(out, mid)
		out = appendSample(out, cur)
		prev = cur
	}
	return out
}

// Downsample48kTo8k reduces 48 kHz samples to 8 kHz with a box filter over
// each group of six, which doubles as a cheap anti-aliasing pass.
func Downsample48kTo8k(samples []int16) []int16 {
	n := len(samples) / 6
	out := make([]int16, n)
	for i := 0; i < n; i++ {
		sum := 0
		for j := 0; j < 6; j++ {
			sum += int(samples[i*6+j])
		}
		out[i] = int16(sum / 6)
	}
	return out
}

func appendSample(b []byte, s int16) []byte {
	return append(b, byte(uint16(s)), byte(uint16(s)>>8))
}

func bytesToSamples(b []byte) []int16 {
	out := make([]int16, len(b)/2)
	for i := range out {
		out[i] = int16(uint16(b[2*i]) | uint16(b[2*i+1])<<8)
	}
	return out
}
