// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chunkbuffer

import (
	"os"

	"golang.org/x/sys/unix"
)

// adviseSequential tells the kernel the file will be read front to
// back so it reads ahead aggressively. Advisory only; failures are
// ignored.
func adviseSequential(file *os.File) {
	_ = unix.Fadvise(int(file.Fd()), 0, 0, unix.FADV_SEQUENTIAL)
}
