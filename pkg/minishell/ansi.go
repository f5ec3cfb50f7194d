package minishell

import (
	"fmt"
	"io"
)

const csi = "\x1b["

func writeStr(w io.Writer, s string) {
	_, _ = io.WriteString(w, s)
}

func cursorAbsoluteColumn(w io.Writer, col int) {
	writeStr(w, fmt.Sprintf("%s%dG", csi, col))
}

func eraseToEndOfLine(w io.Writer) {
	writeStr(w, csi+"K")
}

func eraseDisplayAndScrollback(w io.Writer) {
	writeStr(w, csi+"2J"+csi+"3J")
}

func cursorHome(w io.Writer) {
	writeStr(w, csi+"H")
}

func insertModeOn(w io.Writer) {
	writeStr(w, csi+"4h")
}

func insertModeOff(w io.Writer) {
	writeStr(w, csi+"4l")
}

func sgrRed(w io.Writer) {
	writeStr(w, csi+"31m")
}

func sgrReset(w io.Writer) {
	writeStr(w, csi+"0m")
}

func bell(w io.Writer) {
	writeStr(w, "\a")
}
