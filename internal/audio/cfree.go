package audio

// #include <stdlib.h>
import "C"

import "unsafe"

// freeC releases memory allocated on the C heap, such as the copy
// malgo.DeviceID.Pointer hands out.
func freeC(p unsafe.Pointer) {
	if p != nil {
		C.free(p)
	}
}
