// Package arena implements the fixed-size fast-tier region that holds every
// neuron's trace history.
//
// The region is reserved once at boot and divided into a packed prefix of
// live buffer spans followed by a free tail. The frontier marks the boundary
// between the two. All placement is expressed through Span handles (offset +
// length) rather than raw pointers, so relocation updates a handle instead of
// chasing addresses.
//
// The arena itself is policy-free: it places bytes, moves bytes, and reports
// free space. Which spans are live, and when they move, is decided by the
// history store and its compactor.
package arena
