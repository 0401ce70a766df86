package render

const surfaceVertexShader = `#version 410 core
layout(location = 0) in vec3 aPosition;
layout(location = 1) in vec3 aNormal;

uniform mat4 uModel;
uniform mat4 uView;
uniform mat4 uProjection;

out vec3 vWorldPos;
out vec3 vNormal;

void main() {
    vec4 world = uModel * vec4(aPosition, 1.0);
    vWorldPos = world.xyz;
    vNormal = mat3(transpose(inverse(uModel))) * aNormal;
    gl_Position = uProjection * uView * world;
}
`

const surfaceFragmentShader = `#version 410 core
in vec3 vWorldPos;
in vec3 vNormal;

uniform vec3 uBaseColor;
uniform float uOpacity;
uniform float uMetalness;
uniform float uRoughness;
uniform vec3 uEmissive;
uniform vec3 uTintColor;
uniform float uTintIntensity;

uniform vec3 uCameraPos;
uniform float uAmbient;
uniform float uDirectional;
uniform vec3 uLightDir;

uniform bool uUseEnvironment;
uniform sampler2D uEnvironment;
uniform vec3 uEnvironmentAverage;
uniform float uEnvironmentIntensity;

out vec4 FragColor;

const float PI = 3.14159265;

vec3 sampleEquirect(vec3 d) {
    d = normalize(d);
    vec2 uv = vec2(0.5 + atan(d.x, -d.z) / (2.0 * PI), acos(clamp(d.y, -1.0, 1.0)) / PI);
    return texture(uEnvironment, uv).rgb;
}

void main() {
    vec3 N = normalize(vNormal);
    vec3 V = normalize(uCameraPos - vWorldPos);
    if (dot(N, V) < 0.0) {
        N = -N;
    }

    vec3 diffuseColor = uBaseColor * (1.0 - uMetalness);
    vec3 specColor = mix(vec3(0.04), uBaseColor, uMetalness);
    float shininess = mix(256.0, 4.0, uRoughness);

    vec3 color = vec3(0.0);
    if (uUseEnvironment) {
        vec3 R = reflect(-V, N);
        vec3 irradiance = mix(sampleEquirect(N), uEnvironmentAverage, uRoughness);
        vec3 reflection = mix(sampleEquirect(R), uEnvironmentAverage, uRoughness * uRoughness);
        color = (diffuseColor * irradiance + specColor * reflection) * uEnvironmentIntensity;
    } else {
        color = diffuseColor * uAmbient;
        float NdotL = max(dot(N, uLightDir), 0.0);
        if (NdotL > 0.0) {
            vec3 H = normalize(uLightDir + V);
            float spec = pow(max(dot(N, H), 0.0), shininess) * (1.0 - uRoughness * 0.5);
            color += (diffuseColor * NdotL + specColor * spec) * uDirectional;
        }
    }

    color += uEmissive + uTintColor * uTintIntensity;
    color = pow(clamp(color, 0.0, 1.0), vec3(1.0 / 2.2));
    FragColor = vec4(color, uOpacity);
}
`

// The background pass draws a fullscreen triangle and looks the
// environment up along each pixel's view ray.
const backgroundVertexShader = `#version 410 core
out vec2 vNDC;

void main() {
    vec2 pos = vec2(float((gl_VertexID << 1) & 2), float(gl_VertexID & 2)) * 2.0 - 1.0;
    vNDC = pos;
    gl_Position = vec4(pos, 1.0, 1.0);
}
`

const backgroundFragmentShader = `#version 410 core
in vec2 vNDC;

uniform mat4 uInvViewProjection;
uniform vec3 uCameraPos;
uniform sampler2D uEnvironment;
uniform float uEnvironmentIntensity;

out vec4 FragColor;

const float PI = 3.14159265;

void main() {
    vec4 far = uInvViewProjection * vec4(vNDC, 1.0, 1.0);
    vec3 d = normalize(far.xyz / far.w - uCameraPos);
    vec2 uv = vec2(0.5 + atan(d.x, -d.z) / (2.0 * PI), acos(clamp(d.y, -1.0, 1.0)) / PI);
    vec3 color = texture(uEnvironment, uv).rgb * uEnvironmentIntensity;
    FragColor = vec4(pow(clamp(color, 0.0, 1.0), vec3(1.0 / 2.2)), 1.0);
}
`
