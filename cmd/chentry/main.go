// Command chentry modifies the entry address of an ELF binary.
//
// It is run as a build-time step against the linked kernel image: the
// linker fixes up every symbol address before the image's final load
// address is known, so this tool patches e_entry afterward rather than
// forcing a second link pass.
package main

import (
	"debug/elf"
	"encoding/binary"
	"fmt"
	"log"
	"os"
	"strconv"
)

// entryOffset is where e_entry sits in an ELF64 file header: 16 bytes
// of ident, then e_type, e_machine, e_version.
const entryOffset = 24

// usage prints a small help message and terminates the program.
func usage(me string) {
	fmt.Printf("%s <filename> <addr>\n\nChange the ELF entry point of <filename> to <addr>\n", me)
	os.Exit(1)
}

// chkELF validates the ELF file header to ensure we are modifying the correct
// type of binary. It exits the program if any of the checks fail.
func chkELF(eh *elf.FileHeader) {
	if eh.Class != elf.ELFCLASS64 {
		log.Fatal("not a 64 bit elf")
	}
	if eh.Data != elf.ELFDATA2LSB {
		log.Fatal("not little-endian?")
	}
	if eh.Type != elf.ET_EXEC {
		log.Fatal("not an executable elf")
	}
	if eh.Machine != elf.EM_RISCV {
		log.Fatal("not a riscv64 elf")
	}
}

// main drives the entry point update. It expects a filename and an address
// value on the command line and overwrites e_entry in place.
func main() {
	if len(os.Args) != 3 {
		usage(os.Args[0])
	}
	fn := os.Args[1]
	addr, err := parseAddr(os.Args[2])
	if err != nil {
		log.Fatal(err)
	}

	f, err := os.OpenFile(fn, os.O_RDWR, 0)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()

	ef, err := elf.NewFile(f)
	if err != nil {
		log.Fatal(err)
	}
	chkELF(&ef.FileHeader)

	fmt.Printf("using address 0x%x\n", addr)

	var ebuf [8]byte
	binary.LittleEndian.PutUint64(ebuf[:], addr)
	if _, err := f.WriteAt(ebuf[:], entryOffset); err != nil {
		log.Fatal(err)
	}
}

// parseAddr converts the supplied string into a uint64 address. The syntax
// matches that of C's strtoul with a base of 0, allowing both decimal and
// hexadecimal numbers.
func parseAddr(s string) (uint64, error) {
	a, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q", s)
	}
	return a, nil
}
