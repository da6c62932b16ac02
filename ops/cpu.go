package ops

import "golang.org/x/sys/cpu"

// HasVectorSupport reports whether the host has wide integer compares the packed
// kernels are tuned for. The packed path is correct everywhere, this only picks the default.
func HasVectorSupport() bool {
	return cpu.X86.HasAVX2 || cpu.ARM64.HasASIMD
}
