package refcircuit

// Builder assembles a Circuit in one append-only pass.
//
// Every measurement handle an added instruction targets must have been
// produced by an instruction added earlier to the same builder. References
// are therefore validated as they are added rather than after the fact.
type Builder struct {
	arena    *Arena
	instrs   []*Instruction
	seen     map[InstrID]int
	produced map[RecID]struct{}
}

// NewBuilder creates a builder allocating into arena.
func NewBuilder(arena *Arena) *Builder {
	return &Builder{
		arena:    arena,
		seen:     make(map[InstrID]int),
		produced: make(map[RecID]struct{}),
	}
}

// Arena returns the builder's arena.
func (b *Builder) Arena() *Arena {
	return b.arena
}

// Len returns the number of instructions added so far.
func (b *Builder) Len() int {
	return len(b.instrs)
}

// Append allocates a new instruction and adds it to the sequence.
func (b *Builder) Append(name, tag string, args []float64, targets []Target) (*Instruction, error) {
	if err := b.checkTargets(targets); err != nil {
		return nil, err
	}
	in, err := b.arena.NewInstruction(name, tag, args, targets)
	if err != nil {
		return nil, err
	}
	b.add(in)
	return in, nil
}

// Add appends an already allocated instruction.
//
// Fails with DUPLICATE_INSTRUCTION_IDENTITY if the instruction was already
// added, and with INVALID_CIRCUIT_REFERENCE if it targets a measurement not
// produced earlier in this pass.
func (b *Builder) Add(id InstrID) error {
	in, err := b.arena.Instruction(id)
	if err != nil {
		return err
	}
	if prev, dup := b.seen[id]; dup {
		return newError(ErrCodeDuplicateInstruction, len(b.instrs),
			"instruction %s already appears at index %d; clone the sub-circuit to repeat it", in.name, prev)
	}
	if err := b.checkTargets(in.targets); err != nil {
		return err
	}
	b.add(in)
	return nil
}

func (b *Builder) checkTargets(targets []Target) error {
	for _, t := range targets {
		if !t.IsRec {
			continue
		}
		if _, ok := b.produced[t.Rec]; !ok {
			owner, _, err := b.arena.Owner(t.Rec)
			if err != nil {
				return newError(ErrCodeInvalidReference, len(b.instrs), "reference to unknown measurement %d", t.Rec)
			}
			if _, present := b.seen[owner]; !present {
				return newError(ErrCodeInvalidReference, len(b.instrs),
					"measurement %d is owned by instruction %d, which does not appear earlier in the circuit", t.Rec, owner)
			}
			return newError(ErrCodeInvalidReference, len(b.instrs), "measurement %d was not produced earlier", t.Rec)
		}
	}
	return nil
}

func (b *Builder) add(in *Instruction) {
	b.seen[in.id] = len(b.instrs)
	b.instrs = append(b.instrs, in)
	for _, r := range in.recs {
		b.produced[r] = struct{}{}
	}
}

// Build validates and returns the circuit. The builder must not be used
// afterwards.
func (b *Builder) Build() (*Circuit, error) {
	c := &Circuit{arena: b.arena, instrs: b.instrs}
	b.instrs = nil
	if err := c.sanityCheck(); err != nil {
		return nil, err
	}
	return c, nil
}

// FromInstructions builds a circuit from instructions already allocated in
// arena, in the given order.
func FromInstructions(arena *Arena, ids []InstrID) (*Circuit, error) {
	b := NewBuilder(arena)
	for _, id := range ids {
		if err := b.Add(id); err != nil {
			return nil, err
		}
	}
	return b.Build()
}
