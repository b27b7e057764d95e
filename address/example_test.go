package address_test

import (
	"fmt"

	"github.com/zero-day-ai/binxgraph/address"
)

func ExampleNormalize() {
	for _, s := range []string{"0x00401000", "401abc", "4096"} {
		n, _ := address.Normalize(s)
		fmt.Println(n)
	}
	// Output:
	// 0x401000
	// 0x401abc
	// 0x1000
}
