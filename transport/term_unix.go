// This file is part of ngaro - https://github.com/db47h/ngaro
//
// Copyright 2016 Denis Bernard <db047h@gmail.com>
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

//go:build !windows

package transport

import (
	"syscall"

	"github.com/pkg/errors"
	"github.com/pkg/term/termios"
)

// setRawIO switches fd to raw mode for its own stdin, returning a restore
// func.
func setRawIO(fd int) (func(), error) {
	var tios syscall.Termios
	if err := termios.Tcgetattr(uintptr(fd), &tios); err != nil {
		return nil, errors.Wrap(err, "tcgetattr failed")
	}
	a := tios
	a.Iflag &^= syscall.BRKINT | syscall.ISTRIP | syscall.IXON | syscall.IXOFF
	a.Iflag |= syscall.IGNBRK | syscall.IGNPAR
	a.Lflag &^= syscall.ICANON | syscall.ISIG | syscall.IEXTEN | syscall.ECHO
	a.Cc[syscall.VMIN] = 1
	a.Cc[syscall.VTIME] = 0
	if err := termios.Tcsetattr(uintptr(fd), termios.TCSANOW, &a); err != nil {
		termios.Tcsetattr(uintptr(fd), termios.TCSANOW, &tios)
		return nil, errors.Wrap(err, "tcsetattr failed")
	}
	return func() {
		termios.Tcsetattr(uintptr(fd), termios.TCSANOW, &tios)
	}, nil
}
