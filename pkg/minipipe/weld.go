package minipipe

import (
	"errors"
	"sort"
)

var (
	// ErrWeldJoint is returned when either argument to Weld is already an
	// interior side of some chain.
	ErrWeldJoint = errors.New("minipipe: cannot weld a joint side")
	// ErrWeldSameRole is returned when both arguments play the same role;
	// weld needs one Alice end and one Bob end.
	ErrWeldSameRole = errors.New("minipipe: weld requires one alice-role and one bob-role side")
	// ErrWeldSameChain is returned when both sides already belong to the
	// same chain -- fusing a chain to itself would create a loop.
	ErrWeldSameChain = errors.New("minipipe: cannot weld two ends of the same chain")
	// ErrWeldNotCapable is returned when either chain was allocated without
	// welding support.
	ErrWeldNotCapable = errors.New("minipipe: one or both sides are not weld-capable")
	// ErrWeldRace is returned when either side's role or chain changed
	// between validation and lock acquisition (another weld or free won
	// the race).
	ErrWeldRace = errors.New("minipipe: side changed state during weld")
	// ErrUnweldNotSupported is returned by Unweld: the reference firmware
	// ships unweld only as a crashing placeholder, so minicon starts from
	// an honest stub rather than guessing at undo semantics.
	ErrUnweldNotSupported = errors.New("minipipe: unweld is not implemented")
)

// Weld fuses an Alice-role side of one chain with a Bob-role side of
// another into a single chain, eliminating whatever thread would
// otherwise have copied bytes between them. The two arguments themselves
// become permanently Joint; the chains' other two ends become the new
// chain's exterior Alice and Bob.
//
// Any bytes still buffered for the two discarded interior directions are
// moved into the rings that survive so that ordering (including in-flight
// residual data) is preserved end-to-end.
func Weld(s1, s2 *PipeSide) error {
	r1, c1 := s1.snapshot()
	r2, c2 := s2.snapshot()

	if r1 == RoleJoint || r2 == RoleJoint {
		return ErrWeldJoint
	}
	if r1 == r2 {
		return ErrWeldSameRole
	}

	var aliceArg, bobArg *PipeSide
	var right, left *chain
	if r1 == RoleAlice {
		aliceArg, right = s1, c1
		bobArg, left = s2, c2
	} else {
		aliceArg, right = s2, c2
		bobArg, left = s1, c1
	}

	if left == right {
		return ErrWeldSameChain
	}
	if !left.weldable || !right.weldable {
		return ErrWeldNotCapable
	}

	unlock := lockChainsAndSides(left, right)
	defer unlock()

	// Re-validate: nothing may have changed identity between the snapshot
	// above and acquiring every lock involved.
	if aliceArg.role != RoleAlice || aliceArg.c != right {
		return ErrWeldRace
	}
	if bobArg.role != RoleBob || bobArg.c != left {
		return ErrWeldRace
	}

	// Step 6: drain residual bytes across the seam being discarded so
	// they aren't lost, preserving order relative to the surviving rings.
	leftResidual := left.aToB.Drain()
	right.aToB.Prepend(leftResidual)

	rightResidual := right.bToA.Drain()
	left.bToA.Prepend(rightResidual)

	// Step 7: free the now-redundant rings on the welded seam. Right's
	// a→b ring survives as the merged chain's a→b; left's b→a survives as
	// the merged chain's b→a.
	left.aToB.Close()
	right.bToA.Close()
	left.aToB = right.aToB

	// Step 7 cont'd: right's side array (everyone it still owns) is
	// appended into left, which is the chain object that survives.
	rightBob := right.sides[right.bobID]
	for id, side := range right.sides {
		side.c = left
		left.sides[id] = side
	}
	left.bobID = right.bobID

	// Step 8: the two fused arguments become permanently interior.
	aliceArg.role = RoleJoint
	bobArg.role = RoleJoint

	// Step 9: point the surviving exterior sides' notifications at the
	// merged chain's rings.
	rewireNotifications(left)
	_ = rightBob // kept for readability; already folded into left.sides

	return nil
}

// Unweld is specified abstractly in terms of restoring the pre-weld
// per-direction settings each chain remembered at birth, but the
// reference firmware itself only ships a placeholder that aborts. minicon
// starts from the same honest stub: it validates its argument and
// reports that the operation isn't supported yet, rather than guessing at
// undo semantics nobody has pinned down.
func Unweld(side *PipeSide) error {
	role, _ := side.snapshot()
	if role != RoleJoint {
		return errors.New("minipipe: Unweld called on a non-joint side")
	}
	return ErrUnweldNotSupported
}

// lockChainsAndSides locks every side and chain mutex involved in welding
// left and right, in a fixed global order: all side mutexes (by creation
// id) before either chain mutex (by creation id). Every other operation
// in this package that needs both a side's mutex and its chain's mutex
// (Send, State, Free, ...) takes them in that same side-then-chain order,
// so this matches it rather than inverting it -- the one rule that lets
// concurrent welds and frees never deadlock against each other. Returns a
// function that reverses the locking.
func lockChainsAndSides(left, right *chain) func() {
	sides := make([]*PipeSide, 0, len(left.sides)+len(right.sides))
	for _, s := range left.sides {
		sides = append(sides, s)
	}
	for _, s := range right.sides {
		sides = append(sides, s)
	}
	sort.Slice(sides, func(i, j int) bool { return sides[i].id < sides[j].id })
	for _, s := range sides {
		s.mu.Lock()
	}

	chains := []*chain{left, right}
	sort.Slice(chains, func(i, j int) bool { return chains[i].id < chains[j].id })
	for _, c := range chains {
		c.mu.Lock()
	}

	return func() {
		for i := len(chains) - 1; i >= 0; i-- {
			chains[i].mu.Unlock()
		}
		for i := len(sides) - 1; i >= 0; i-- {
			sides[i].mu.Unlock()
		}
	}
}
