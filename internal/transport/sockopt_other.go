//go:build !unix

package transport

func setReuseAddr(uintptr) error { return nil }
