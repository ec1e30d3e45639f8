//go:build !linux

package main

func stderrIsTTY() bool { return false }

func stdinIsTTY() bool { return false }
