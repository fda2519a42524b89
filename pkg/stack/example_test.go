package stack_test

import (
	"fmt"

	"github.com/matzehuels/calostack/pkg/assembly"
	"github.com/matzehuels/calostack/pkg/stack"
)

func ExampleCompose() {
	dims := stack.Dimensions{
		assembly.KindWideBar: {Half: 5},
		assembly.KindPassive: {Half: 1},
	}
	opts := stack.Options{GapAfter: map[stack.Code]float64{stack.Passive: 2}}

	plan, err := stack.Compose("1272", stack.SplitCalTable, dims, opts)
	if err != nil {
		panic(err)
	}
	for _, l := range plan.Layers {
		fmt.Printf("%s z=%g rot=%d %s=%d\n", l.Code, l.Center.Z, l.Orientation, l.Field, l.ID)
	}
	fmt.Println("thickness:", plan.Thickness())
	// Output:
	// 1 z=5 rot=90 splitcal_layer=0
	// 2 z=15 rot=0 splitcal_layer=1
	// 7 z=21 rot=0 splitcal_passivelayer=2
	// 2 z=29 rot=0 splitcal_layer=3
	// thickness: 34
}

func ExampleStep() {
	s := stack.State{}
	entry := stack.SplitCalTable[stack.ThinVertical]
	for i := 0; i < 3; i++ {
		var l stack.Layer
		s, l = stack.Step(s, stack.ThinVertical, entry, stack.Extent{Half: 2.5}, stack.Options{})
		fmt.Println(l.Center.Z, s.Offset)
	}
	// Output:
	// 2.5 5
	// 7.5 10
	// 12.5 15
}
