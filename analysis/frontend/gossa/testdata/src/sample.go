package pdgtest

var total int

type Counter struct{ n int }

func (c *Counter) Add(x int) {
	c.n = c.n + x
	if c.n > 10 {
		c.n = 0
	}
}

func Record(x int) int {
	total = total + x
	return total
}

func Apply(xs []int) int {
	sum := 0
	each(xs, func(x int) {
		sum += x
	})
	return sum
}

func each(xs []int, f func(int)) {
	for _, x := range xs {
		f(x)
	}
}

func Lookup(m map[string]int, k string) int {
	m[k] = 1
	v := m[k]
	return v
}
