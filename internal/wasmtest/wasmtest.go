// Package wasmtest provides hand-assembled guest modules that call the hash
// syscall, so tests need no wasm toolchain.
//
// The guest is equivalent to:
//
//	(module
//	  (type (func (param i64 i32 i32 i32 i32) (result i32 i32)))
//	  (import "crypto" "hash" (func $hash (type 0)))
//	  (memory (export "memory") <pages>)
//	  (func (export "hash") (type 0)
//	    local.get 0 local.get 1 local.get 2 local.get 3 local.get 4
//	    call $hash))
package wasmtest

// PageSize is the size of a wasm memory page.
const PageSize = 65536

// ExportName is the guest export that forwards to the host hash function.
const ExportName = "hash"

var (
	header = []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

	typeSection = []byte{
		0x01, 0x0b, 0x01,
		0x60, 0x05, 0x7e, 0x7f, 0x7f, 0x7f, 0x7f, 0x02, 0x7f, 0x7f,
	}

	importSection = []byte{
		0x02, 0x0f, 0x01,
		0x06, 'c', 'r', 'y', 'p', 't', 'o',
		0x04, 'h', 'a', 's', 'h',
		0x00, 0x00,
	}

	functionSection = []byte{0x03, 0x02, 0x01, 0x00}

	codeSection = []byte{
		0x0a, 0x10, 0x01, 0x0e, 0x00,
		0x20, 0x00, 0x20, 0x01, 0x20, 0x02, 0x20, 0x03, 0x20, 0x04,
		0x10, 0x00,
		0x0b,
	}
)

// Guest returns a module with an exported memory of pages pages (at most 127)
// and the forwarding "hash" export.
func Guest(pages uint8) []byte {
	if pages > 0x7f {
		pages = 0x7f
	}
	var b []byte
	b = append(b, header...)
	b = append(b, typeSection...)
	b = append(b, importSection...)
	b = append(b, functionSection...)
	b = append(b, 0x05, 0x03, 0x01, 0x00, pages)
	b = append(b,
		0x07, 0x11, 0x02,
		0x06, 'm', 'e', 'm', 'o', 'r', 'y', 0x02, 0x00,
		0x04, 'h', 'a', 's', 'h', 0x00, 0x01,
	)
	b = append(b, codeSection...)
	return b
}

// GuestWithoutMemory returns the forwarding module with no memory at all.
func GuestWithoutMemory() []byte {
	var b []byte
	b = append(b, header...)
	b = append(b, typeSection...)
	b = append(b, importSection...)
	b = append(b, functionSection...)
	b = append(b, 0x07, 0x08, 0x01, 0x04, 'h', 'a', 's', 'h', 0x00, 0x01)
	b = append(b, codeSection...)
	return b
}

// Module is a named guest binary. It satisfies executor.Guest.
type Module struct {
	ModuleName string
	Binary     []byte
}

func (m Module) Name() string   { return m.ModuleName }
func (m Module) Module() []byte { return m.Binary }

// OnePage is a one-page guest.
var OnePage = Module{ModuleName: "wasmtest-1p", Binary: Guest(1)}

// SpinExport is the export of Spinner.
const SpinExport = "spin"

// Spinner returns a module whose "spin" export never returns:
//
//	(module (func (export "spin") (loop (br 0))))
func Spinner() []byte {
	var b []byte
	b = append(b, header...)
	b = append(b, 0x01, 0x04, 0x01, 0x60, 0x00, 0x00)
	b = append(b, 0x03, 0x02, 0x01, 0x00)
	b = append(b, 0x07, 0x08, 0x01, 0x04, 's', 'p', 'i', 'n', 0x00, 0x00)
	b = append(b, 0x0a, 0x09, 0x01, 0x07, 0x00, 0x03, 0x40, 0x0c, 0x00, 0x0b, 0x0b)
	return b
}
