package accel

// A Dispatcher issues copy/launch/copy sequences on a caller-chosen
// stream of the manager's current device and synchronizes that stream
// before returning. Every call is synchronous at this boundary; overlap
// happens only across distinct streams.
type Dispatcher struct {
	mgr *Manager
}

func NewDispatcher(mgr *Manager) *Dispatcher {
	return &Dispatcher{mgr: mgr}
}

const bytesPerSample = 8 // float64 on the wire

// SlidingDotProduct computes the sliding dot product of q against t on
// the device, writing len(t)-len(q)+1 values into qt.
func (d *Dispatcher) SlidingDotProduct(t []float64, q []float64, qt []float64, stream int) error {
	dev, err := d.mgr.Current()
	if err != nil {
		return err
	}
	tPtr, err := dev.pool.Alloc(bytesPerSample * len(t))
	if err != nil {
		return site(err, "sliding_dot_product: alloc T")
	}
	defer dev.pool.Free(tPtr)
	qPtr, err := dev.pool.Alloc(bytesPerSample * len(q))
	if err != nil {
		return site(err, "sliding_dot_product: alloc Q")
	}
	defer dev.pool.Free(qPtr)
	qtPtr, err := dev.pool.Alloc(bytesPerSample * len(qt))
	if err != nil {
		return site(err, "sliding_dot_product: alloc QT")
	}
	defer dev.pool.Free(qtPtr)

	if err := dev.ctx.CopyToDeviceAsync(tPtr, t, stream); err != nil {
		return site(err, "sliding_dot_product: copy T")
	}
	if err := dev.ctx.CopyToDeviceAsync(qPtr, q, stream); err != nil {
		return site(err, "sliding_dot_product: copy Q")
	}
	args := []Arg{
		PtrArg(tPtr), PtrArg(qPtr), PtrArg(qtPtr),
		U64Arg(uint64(len(t))), U64Arg(uint64(len(q))),
	}
	if err := dev.ctx.LaunchAsync(dev.dotProduct, stream, args); err != nil {
		return site(err, "sliding_dot_product: launch")
	}
	if err := dev.ctx.CopyFromDeviceAsync(qt, qtPtr, stream); err != nil {
		return site(err, "sliding_dot_product: copy QT")
	}
	return site(dev.ctx.SynchronizeStream(stream), "sliding_dot_product: synchronize")
}

// MeanStd computes per-window mean and standard deviation on the device.
func (d *Dispatcher) MeanStd(t []float64, m int, mu []float64, sigma []float64, stream int) error {
	dev, err := d.mgr.Current()
	if err != nil {
		return err
	}
	tPtr, err := dev.pool.Alloc(bytesPerSample * len(t))
	if err != nil {
		return site(err, "compute_mean_std: alloc T")
	}
	defer dev.pool.Free(tPtr)
	muPtr, err := dev.pool.Alloc(bytesPerSample * len(mu))
	if err != nil {
		return site(err, "compute_mean_std: alloc mu")
	}
	defer dev.pool.Free(muPtr)
	sigmaPtr, err := dev.pool.Alloc(bytesPerSample * len(sigma))
	if err != nil {
		return site(err, "compute_mean_std: alloc sigma")
	}
	defer dev.pool.Free(sigmaPtr)

	if err := dev.ctx.CopyToDeviceAsync(tPtr, t, stream); err != nil {
		return site(err, "compute_mean_std: copy T")
	}
	args := []Arg{
		PtrArg(tPtr), PtrArg(muPtr), PtrArg(sigmaPtr),
		U64Arg(uint64(len(t))), U64Arg(uint64(m)),
	}
	if err := dev.ctx.LaunchAsync(dev.meanStd, stream, args); err != nil {
		return site(err, "compute_mean_std: launch")
	}
	if err := dev.ctx.CopyFromDeviceAsync(mu, muPtr, stream); err != nil {
		return site(err, "compute_mean_std: copy mu")
	}
	if err := dev.ctx.CopyFromDeviceAsync(sigma, sigmaPtr, stream); err != nil {
		return site(err, "compute_mean_std: copy sigma")
	}
	return site(dev.ctx.SynchronizeStream(stream), "compute_mean_std: synchronize")
}

// SelfJoin computes the matrix profile of t on the device, writing
// len(t)-m+1 distances into p.
func (d *Dispatcher) SelfJoin(t []float64, m int, p []float64, stream int, normalize bool) error {
	dev, err := d.mgr.Current()
	if err != nil {
		return err
	}
	tPtr, err := dev.pool.Alloc(bytesPerSample * len(t))
	if err != nil {
		return site(err, "selfjoin: alloc T")
	}
	defer dev.pool.Free(tPtr)
	pPtr, err := dev.pool.Alloc(bytesPerSample * len(p))
	if err != nil {
		return site(err, "selfjoin: alloc P")
	}
	defer dev.pool.Free(pPtr)

	kernel := dev.selfjoin
	if !normalize {
		kernel = dev.selfjoinED
	}
	if err := dev.ctx.CopyToDeviceAsync(tPtr, t, stream); err != nil {
		return site(err, "selfjoin: copy T")
	}
	args := []Arg{
		PtrArg(tPtr), PtrArg(pPtr),
		U64Arg(uint64(len(t))), U64Arg(uint64(m)),
	}
	if err := dev.ctx.LaunchAsync(kernel, stream, args); err != nil {
		return site(err, "selfjoin: launch")
	}
	if err := dev.ctx.CopyFromDeviceAsync(p, pPtr, stream); err != nil {
		return site(err, "selfjoin: copy P")
	}
	return site(dev.ctx.SynchronizeStream(stream), "selfjoin: synchronize")
}

// ABJoin computes the profile of t1 against t2 on the device, writing
// len(t1)-m+1 distances into p.
func (d *Dispatcher) ABJoin(t1 []float64, t2 []float64, m int, p []float64, stream int, normalize bool) error {
	dev, err := d.mgr.Current()
	if err != nil {
		return err
	}
	t1Ptr, err := dev.pool.Alloc(bytesPerSample * len(t1))
	if err != nil {
		return site(err, "abjoin: alloc T1")
	}
	defer dev.pool.Free(t1Ptr)
	t2Ptr, err := dev.pool.Alloc(bytesPerSample * len(t2))
	if err != nil {
		return site(err, "abjoin: alloc T2")
	}
	defer dev.pool.Free(t2Ptr)
	pPtr, err := dev.pool.Alloc(bytesPerSample * len(p))
	if err != nil {
		return site(err, "abjoin: alloc P")
	}
	defer dev.pool.Free(pPtr)

	kernel := dev.abjoin
	if !normalize {
		kernel = dev.abjoinED
	}
	if err := dev.ctx.CopyToDeviceAsync(t1Ptr, t1, stream); err != nil {
		return site(err, "abjoin: copy T1")
	}
	if err := dev.ctx.CopyToDeviceAsync(t2Ptr, t2, stream); err != nil {
		return site(err, "abjoin: copy T2")
	}
	args := []Arg{
		PtrArg(t1Ptr), PtrArg(t2Ptr), PtrArg(pPtr),
		U64Arg(uint64(len(t1))), U64Arg(uint64(len(t2))), U64Arg(uint64(m)),
	}
	if err := dev.ctx.LaunchAsync(kernel, stream, args); err != nil {
		return site(err, "abjoin: launch")
	}
	if err := dev.ctx.CopyFromDeviceAsync(p, pPtr, stream); err != nil {
		return site(err, "abjoin: copy P")
	}
	return site(dev.ctx.SynchronizeStream(stream), "abjoin: synchronize")
}

// Sleep parks the stream for the given number of microseconds. This is a
// benchmarking hook with no semantic output.
func (d *Dispatcher) Sleep(microseconds uint64, stream int) error {
	dev, err := d.mgr.Current()
	if err != nil {
		return err
	}
	if err := dev.ctx.LaunchAsync(dev.sleep, stream, []Arg{U64Arg(microseconds)}); err != nil {
		return site(err, "sleep: launch")
	}
	return site(dev.ctx.SynchronizeStream(stream), "sleep: synchronize")
}
