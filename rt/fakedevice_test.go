package rt

import "sync/atomic"

type fakeDevice struct {
	ranOnRT atomic.Bool
}

func (d *fakeDevice) Start() error { return nil }
func (d *fakeDevice) Stop() error  { return nil }
func (d *fakeDevice) Clear()       {}

func (d *fakeDevice) Run(stop <-chan struct{}) error {
	d.ranOnRT.Store(OnRT())
	<-stop
	return nil
}
