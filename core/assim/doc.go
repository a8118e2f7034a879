// Package assim implements sequential data assimilation over ensembles of
// composite catchment models. Two filters are available: a stochastic
// ensemble Kalman filter and a particle filter with systematic resampling.
//
// Every time step is split in two phases. During the forecast phase each
// member propagates its own deep copy of the model independently, in
// parallel. The analysis phase then reduces all forecasts into ensemble
// statistics and corrects the members before the next step starts.
package assim
