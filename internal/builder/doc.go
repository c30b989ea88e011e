/*
Package builder constructs compiled graphs from the configuration model. It
acts as the bridge between the static definitions (the 'config' package), the
kernel registry and the graph builder API (the 'graph' package).

The construction is a multi-phase process:

 1. Reference Linking: every sequential reachable from the requested graph is
    added to a dependency DAG, with an edge from each appended sequential to
    the block that appends it. Cycle detection runs on this DAG, so a
    sequential that (directly or indirectly) appends itself is rejected with
    the offending path.

 2. Block Construction: sequentials are created and filled in dependency
    order. A sequential is frozen the first time it is appended, so every
    block is complete before anything references it.

 3. Compilation: the top-level steps are emplaced and the builder is
    compiled. Kernels resolve through the registry and are compiled through
    the shared cache, so graphs built from one model reuse each other's
    compiled kernels.
*/
package builder
