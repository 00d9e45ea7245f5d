package chanx

import "runtime"

func runtimeGosched() {
	runtime.Gosched()
}
