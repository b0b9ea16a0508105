package region

import (
	"testing"
)

// TestSecondaryFor 测试降级环US→EU→ASIA→US
func TestSecondaryFor(t *testing.T) {
	cases := map[ID]ID{
		US:   EU,
		EU:   Asia,
		Asia: US,
	}
	for primary, want := range cases {
		if got := SecondaryFor(primary); got != want {
			t.Errorf("SecondaryFor(%s): 期望%s,实际%s", primary, want, got)
		}
	}
}

// TestSecondaryFor_Ring 测试沿环走一圈回到起点
func TestSecondaryFor_Ring(t *testing.T) {
	for _, start := range All() {
		current := start
		for i := 0; i < len(All()); i++ {
			current = SecondaryFor(current)
		}
		if current != start {
			t.Errorf("从%s出发走%d步应回到起点,实际到达%s", start, len(All()), current)
		}
	}
}

// TestIsValid 测试区域合法性判定
func TestIsValid(t *testing.T) {
	for _, id := range All() {
		if !id.IsValid() {
			t.Errorf("%s应为合法区域", id)
		}
	}
	for _, bad := range []ID{"", "us", "MARS"} {
		if bad.IsValid() {
			t.Errorf("%q不应为合法区域", bad)
		}
	}
}
