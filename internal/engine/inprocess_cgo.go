//go:build llama

package engine

// cgo link directives for the in-process runtime.
// - rpath $ORIGIN lets the loader find libllama.so next to the built
//   binary (./bin) without environment variables.
// - -L${SRCDIR}/../../bin resolves libllama.so at link time for the
//   'llama' build variant.
/*
#cgo LDFLAGS: -Wl,-rpath,'$ORIGIN' -L${SRCDIR}/../../bin -lllama
*/
import "C"
