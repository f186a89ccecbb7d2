// Package leb128 reads and writes the variable length integer encoding
// shared by DWARF and the WebAssembly binary format (DWARF v4, section
// 7.6).
package leb128
