/*
 * Copyright 2025 SREDiag Authors
 * Copyright 2023 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package shmstate

import (
	"os"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v3/disk"
)

// RegionSize returns the size of every state's shared region: exactly one
// platform page.
func RegionSize() int {
	return os.Getpagesize()
}

func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// canCreateOnDevShm reports whether a segment of the given size fits on the
// shared-memory filesystem backing path. Paths outside /dev/shm, and every
// platform but Linux, are not capacity-checked.
func canCreateOnDevShm(size uint64, path string) bool {
	if runtime.GOOS == "linux" && strings.HasPrefix(path, "/dev/shm") {
		stat, err := disk.Usage("/dev/shm")
		if err != nil {
			internalLogger.warnf("couldn't stat /dev/shm: %v", err)
			return true
		}
		return stat.Free >= size
	}
	return true
}
