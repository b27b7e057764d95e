package id_test

import (
	"fmt"

	"github.com/zero-day-ai/binxgraph/graph/id"
)

func ExampleFunction() {
	fmt.Println(id.Function("abc123", 0x401000))
	fmt.Println(id.Import("KERNEL32.dll", "CreateFileW"))
	fmt.Println(id.ImportIn("abc123", "KERNEL32.dll", "CreateFileW"))
	fmt.Println(id.String("abc123", "Hello\x00") == id.String("abc123", "Hello"))
	// Output:
	// abc123:0x401000
	// imp:kernel32.dll:CreateFileW
	// imp:abc123:kernel32.dll:CreateFileW
	// true
}
